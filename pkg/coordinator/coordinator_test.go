package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/shoot/pkg/collector"
	"github.com/giantswarm/shoot/pkg/config"
	"github.com/giantswarm/shoot/pkg/runtime"
)

// fakeLLM returns canned responses in order, or blocks until the
// context dies when block is set.
type fakeLLM struct {
	responses []*runtime.Response
	block     bool
	systems   []string
	tools     [][]string
}

func (f *fakeLLM) Chat(ctx context.Context, _, system string, _ []runtime.Message, tools []runtime.ToolDefinition) (*runtime.Response, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	f.systems = append(f.systems, system)
	f.tools = append(f.tools, names)

	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no responses left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeLLM) Name() string { return "fake" }

// noopRouter serves a fixed answer for every MCP tool.
type noopRouter struct{ closed bool }

func (r *noopRouter) Definitions(_ context.Context, allowed []string) ([]runtime.ToolDefinition, error) {
	var defs []runtime.ToolDefinition
	for _, name := range allowed {
		if name != config.TaskTool {
			defs = append(defs, runtime.ToolDefinition{
				Name:        name,
				InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
			})
		}
	}
	return defs, nil
}

func (r *noopRouter) Call(context.Context, string, json.RawMessage) (string, bool, error) {
	return "tool output", false, nil
}

func (r *noopRouter) Close() error {
	r.closed = true
	return nil
}

func testProvider(t *testing.T) *config.Provider {
	t.Helper()
	baseDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(baseDir, "prompts"), 0o755))
	writePrompt := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(baseDir, "prompts", name), []byte(content), 0o644))
	}
	writePrompt("investigator.md", "Investigate ${cluster} issues.")
	writePrompt("wc-collector.md", "Collect workload data.")

	cfg := &config.ShootConfig{
		MCPServers: map[string]*config.MCPServerConfig{
			"kubernetes-wc": {
				Command: "/usr/local/bin/mcp-kubernetes",
				Tools:   []string{"pods_list"},
			},
		},
		Subagents: map[string]*config.SubagentConfig{
			"wc-collector": {
				Description:      "Collects workload cluster state",
				SystemPromptFile: "prompts/wc-collector.md",
				MCPServers:       []string{"kubernetes-wc"},
			},
		},
		Assistants: map[string]*config.AssistantConfig{
			"investigator": {
				Description:      "Coordinates diagnostics",
				SystemPromptFile: "prompts/investigator.md",
				Subagents:        []string{"wc-collector"},
				PromptVariables:  map[string]string{"cluster": "gauss"},
				RequestVariables: []string{"cluster"},
			},
		},
		AssistantOrder: []string{"investigator"},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return config.NewStaticProvider(cfg, baseDir)
}

func text(s string) *runtime.Response {
	return &runtime.Response{Content: s, StopReason: runtime.StopReasonEndTurn}
}

func TestInvestigate_DefaultAssistant(t *testing.T) {
	llm := &fakeLLM{responses: []*runtime.Response{text("diagnosis complete")}}
	router := &noopRouter{}
	c := New(testProvider(t), llm,
		WithEnv(map[string]string{}),
		WithRouterFactory(func([]collector.ServerSpec) runtime.ToolRouter { return router }),
	)

	result, err := c.Investigate(context.Background(), Request{Query: "deployment not ready"})
	require.NoError(t, err)

	assert.Equal(t, "diagnosis complete", result.Result)
	assert.Equal(t, "investigator", result.Assistant)
	assert.Equal(t, 1, result.NumTurns)
	assert.True(t, router.closed, "MCP connections must be torn down")

	// Prompt variables from config were substituted.
	require.Len(t, llm.systems, 1)
	assert.Equal(t, "Investigate gauss issues.", llm.systems[0])

	// The coordinator sees only the Task tool.
	assert.Equal(t, []string{config.TaskTool}, llm.tools[0])
}

func TestInvestigate_DirectServersDoNotWidenToolSurface(t *testing.T) {
	llm := &fakeLLM{responses: []*runtime.Response{text("ok")}}
	provider := testProvider(t)
	cfg, err := provider.Get()
	require.NoError(t, err)
	// Declaring an MCP server on the assistant must not expose its
	// tools; only allowed_tools governs the surface.
	cfg.Assistants["investigator"].MCPServers = []string{"kubernetes-wc"}

	c := New(provider, llm,
		WithEnv(map[string]string{}),
		WithRouterFactory(func([]collector.ServerSpec) runtime.ToolRouter { return &noopRouter{} }),
	)

	_, err = c.Investigate(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, []string{config.TaskTool}, llm.tools[0])
}

func TestInvestigate_RequestVariableOverride(t *testing.T) {
	llm := &fakeLLM{responses: []*runtime.Response{text("ok")}}
	c := New(testProvider(t), llm,
		WithEnv(map[string]string{}),
		WithRouterFactory(func([]collector.ServerSpec) runtime.ToolRouter { return &noopRouter{} }),
	)

	_, err := c.Investigate(context.Background(), Request{
		Query:     "q",
		Variables: map[string]string{"cluster": "talos", "not_allowed": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Investigate talos issues.", llm.systems[0])
}

func TestInvestigate_UnknownAssistant(t *testing.T) {
	c := New(testProvider(t), &fakeLLM{}, WithEnv(map[string]string{}))

	_, err := c.Investigate(context.Background(), Request{Query: "q", Assistant: "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestInvestigate_Timeout(t *testing.T) {
	llm := &fakeLLM{block: true}
	c := New(testProvider(t), llm,
		WithEnv(map[string]string{}),
		WithRouterFactory(func([]collector.ServerSpec) runtime.ToolRouter { return &noopRouter{} }),
	)

	start := time.Now()
	_, err := c.Investigate(context.Background(), Request{Query: "q", TimeoutSeconds: 1})
	require.Error(t, err)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "investigator", timeoutErr.Assistant)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestInvestigate_ProviderFailureWrapped(t *testing.T) {
	llm := &fakeLLM{} // no responses: first Chat errors
	c := New(testProvider(t), llm,
		WithEnv(map[string]string{}),
		WithRouterFactory(func([]collector.ServerSpec) runtime.ToolRouter { return &noopRouter{} }),
	)

	_, err := c.Investigate(context.Background(), Request{Query: "q"})
	require.Error(t, err)

	var collectorErr *CollectorError
	require.ErrorAs(t, err, &collectorErr)
}

func TestInvestigateStream_EmitsErrorChunk(t *testing.T) {
	llm := &fakeLLM{}
	c := New(testProvider(t), llm,
		WithEnv(map[string]string{}),
		WithRouterFactory(func([]collector.ServerSpec) runtime.ToolRouter { return &noopRouter{} }),
	)

	var chunks []runtime.Chunk
	_, err := c.InvestigateStream(context.Background(), Request{Query: "q"}, func(ch runtime.Chunk) {
		chunks = append(chunks, ch)
	})
	require.Error(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, runtime.ChunkError, chunks[len(chunks)-1].Type)
}

func TestReady(t *testing.T) {
	c := New(testProvider(t), &fakeLLM{}, WithEnv(map[string]string{}))
	assert.True(t, c.Ready(""))
	assert.True(t, c.Ready("investigator"))
	assert.False(t, c.Ready("ghost"))
}

func TestReady_NotConfigured(t *testing.T) {
	p, err := config.NewProvider(filepath.Join(t.TempDir(), "absent.yaml"), config.LoadOptions{})
	require.NoError(t, err)
	c := New(p, &fakeLLM{}, WithEnv(map[string]string{}))
	assert.False(t, c.Ready(""))
}

func TestAssistants(t *testing.T) {
	c := New(testProvider(t), &fakeLLM{})
	names, err := c.Assistants()
	require.NoError(t, err)
	assert.Equal(t, []string{"investigator"}, names)
}
