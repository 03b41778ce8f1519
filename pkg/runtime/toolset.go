package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/shoot/pkg/collector"
	"github.com/giantswarm/shoot/pkg/config"
	"github.com/giantswarm/shoot/pkg/httpclient"
)

const mcpProtocolVersion = "2024-11-05"

// Toolset is the live connection to one MCP server. Connections are
// lazy: nothing is launched or dialed until tools are first needed.
type Toolset struct {
	spec collector.ServerSpec

	mu         sync.Mutex
	stdio      *client.Client
	httpClient *httpclient.Client
	tools      []ToolDefinition
	connected  bool
}

// NewToolset wraps a server spec. Connect happens on first use.
func NewToolset(spec collector.ServerSpec) *Toolset {
	return &Toolset{spec: spec}
}

// Name returns the configured server name.
func (t *Toolset) Name() string {
	return t.spec.Name
}

// Tools returns the server's tool definitions under their
// fully-qualified names, restricted to the tools the configuration
// declares for this server.
func (t *Toolset) Tools(ctx context.Context) ([]ToolDefinition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		if err := t.connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to MCP server '%s': %w", t.spec.Name, err)
		}
	}
	return t.tools, nil
}

// Call executes one tool by its bare name. The bool result reports
// whether the tool itself signalled an error; err covers transport
// failures.
func (t *Toolset) Call(ctx context.Context, tool string, input json.RawMessage) (string, bool, error) {
	if _, err := t.Tools(ctx); err != nil {
		return "", false, err
	}

	var args map[string]any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return "", false, fmt.Errorf("invalid tool input for '%s': %w", tool, err)
		}
	}

	t.mu.Lock()
	stdio := t.stdio
	t.mu.Unlock()

	if stdio != nil {
		return t.callStdio(ctx, stdio, tool, args)
	}
	return t.callHTTP(ctx, tool, args)
}

// Close shuts down the server connection. Local servers are terminated
// with their subprocess.
func (t *Toolset) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connected = false
	t.tools = nil
	if t.stdio != nil {
		err := t.stdio.Close()
		t.stdio = nil
		return err
	}
	t.httpClient = nil
	return nil
}

func (t *Toolset) connect(ctx context.Context) error {
	switch ep := t.spec.Endpoint.(type) {
	case config.LocalCommand:
		return t.connectStdio(ctx, ep)
	case config.RemoteURL:
		return t.connectHTTP(ctx, ep)
	default:
		return fmt.Errorf("unsupported endpoint type %T", t.spec.Endpoint)
	}
}

func (t *Toolset) connectStdio(ctx context.Context, ep config.LocalCommand) error {
	mcpClient, err := client.NewStdioMCPClient(ep.Command, envSlice(ep.Env), ep.Args...)
	if err != nil {
		return fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "shoot", Version: "1.0.0"}
	initReq.Params.ProtocolVersion = mcpProtocolVersion
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return fmt.Errorf("failed to list tools: %w", err)
	}

	declared := declaredSet(t.spec.Tools)
	var tools []ToolDefinition
	for _, mcpTool := range listResp.Tools {
		if declared != nil && !declared[mcpTool.Name] {
			continue
		}
		tools = append(tools, ToolDefinition{
			Name:        config.ToolName(t.spec.Name, mcpTool.Name),
			Description: mcpTool.Description,
			InputSchema: convertSchema(mcpTool.InputSchema),
		})
	}

	t.stdio = mcpClient
	t.tools = tools
	t.connected = true

	slog.Info("Connected to MCP server (stdio)",
		"name", t.spec.Name,
		"command", ep.Command,
		"tools", len(tools),
	)
	return nil
}

func (t *Toolset) connectHTTP(ctx context.Context, ep config.RemoteURL) error {
	t.httpClient = httpclient.New(
		httpclient.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		httpclient.WithMaxRetries(3),
		httpclient.WithBaseDelay(2*time.Second),
		httpclient.WithHeaderParser(httpclient.ParseRetryAfterHeader),
	)

	initResp, err := t.rpc(ctx, "initialize", map[string]any{
		"protocolVersion": mcpProtocolVersion,
		"clientInfo":      map[string]any{"name": "shoot", "version": "1.0.0"},
		"capabilities":    map[string]any{},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize MCP: %w", err)
	}
	if initResp.Error != nil {
		return fmt.Errorf("MCP init error: %s", initResp.Error.Message)
	}

	listResp, err := t.rpc(ctx, "tools/list", nil)
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	if listResp.Error != nil {
		return fmt.Errorf("MCP list error: %s", listResp.Error.Message)
	}

	var listed struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(listResp.Result, &listed); err != nil {
		return fmt.Errorf("unexpected tools/list response: %w", err)
	}

	declared := declaredSet(t.spec.Tools)
	var tools []ToolDefinition
	for _, mcpTool := range listed.Tools {
		if declared != nil && !declared[mcpTool.Name] {
			continue
		}
		tools = append(tools, ToolDefinition{
			Name:        config.ToolName(t.spec.Name, mcpTool.Name),
			Description: mcpTool.Description,
			InputSchema: mcpTool.InputSchema,
		})
	}

	t.tools = tools
	t.connected = true

	slog.Info("Connected to MCP server (HTTP)",
		"name", t.spec.Name,
		"url", ep.URL,
		"tools", len(tools),
	)
	return nil
}

func (t *Toolset) callStdio(ctx context.Context, mcpClient *client.Client, tool string, args map[string]any) (string, bool, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return "", false, fmt.Errorf("MCP call failed: %w", err)
	}

	var texts []string
	for _, content := range resp.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			texts = append(texts, textContent.Text)
		}
	}
	return strings.Join(texts, "\n"), resp.IsError, nil
}

func (t *Toolset) callHTTP(ctx context.Context, tool string, args map[string]any) (string, bool, error) {
	resp, err := t.rpc(ctx, "tools/call", map[string]any{
		"name":      tool,
		"arguments": args,
	})
	if err != nil {
		return "", false, fmt.Errorf("MCP call failed: %w", err)
	}
	if resp.Error != nil {
		return resp.Error.Message, true, nil
	}

	var result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return string(resp.Result), false, nil
	}

	var texts []string
	for _, c := range result.Content {
		if c.Type == "text" {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n"), result.IsError, nil
}

// JSON-RPC plumbing for remote MCP servers.
type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *Toolset) rpc(ctx context.Context, method string, params any) (*jsonRPCResponse, error) {
	url := t.spec.Endpoint.(config.RemoteURL).URL

	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		responseBody, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(responseBody))
	}

	responseBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(responseBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

func declaredSet(tools []string) map[string]bool {
	if len(tools) == 0 {
		return nil
	}
	set := make(map[string]bool, len(tools))
	for _, t := range tools {
		set[t] = true
	}
	return set
}

func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}
