package coordinator

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/giantswarm/shoot/pkg/collector"
	"github.com/giantswarm/shoot/pkg/config"
	"github.com/giantswarm/shoot/pkg/runtime"
)

// plan is everything one investigation needs, resolved from
// configuration: the coordinator's agent spec, its delegation targets,
// and the MCP servers to launch.
type plan struct {
	assistant      string
	spec           runtime.AgentSpec
	agents         []collector.AgentDefinition
	servers        []collector.ServerSpec
	timeoutSeconds int
	responseSchema string
}

// buildPlan resolves an investigation plan. An empty assistantName
// selects the configuration's default (first declared) assistant.
// Request variables are filtered against the assistant's allow-list
// before they reach the prompt.
func buildPlan(cfg *config.ShootConfig, baseDir, assistantName string, req Request, env map[string]string) (*plan, error) {
	if assistantName == "" {
		name, err := cfg.DefaultAssistant()
		if err != nil {
			return nil, err
		}
		assistantName = name
		slog.Info("No assistant specified, using default", "assistant", assistantName)
	}

	assistant, err := cfg.GetAssistant(assistantName)
	if err != nil {
		return nil, err
	}

	promptVars := config.MergeVariables(assistant.PromptVariables, req.Variables, assistant.RequestVariables)
	promptPath := config.ResolvePath(baseDir, assistant.SystemPromptFile)
	systemPrompt, err := config.LoadPrompt(promptPath, env, promptVars)
	if err != nil {
		return nil, fmt.Errorf("assistant '%s': %w", assistantName, err)
	}

	servers, err := collector.BuildServerSpecs(cfg, assistantName)
	if err != nil {
		return nil, err
	}
	agents, err := collector.BuildAgentDefinitions(cfg, assistantName, baseDir, env)
	if err != nil {
		return nil, err
	}

	// The assistant's surface is exactly its configured allowed_tools
	// (normally just Task); direct MCP tools must be listed there
	// explicitly to be usable.
	allowedTools := append([]string(nil), assistant.AllowedTools...)
	directTools, err := collector.ToolsForAssistant(cfg, assistantName)
	if err != nil {
		return nil, err
	}
	for _, tool := range allowedTools {
		if tool != config.TaskTool && !slices.Contains(directTools, tool) {
			slog.Warn("Allowed tool not served by the assistant's MCP servers",
				"assistant", assistantName, "tool", tool)
		}
	}

	maxTurns := req.MaxTurns
	if maxTurns <= 0 {
		maxTurns = cfg.ResolveMaxTurns(assistant.MaxTurns, true)
	}
	timeout := req.TimeoutSeconds
	if timeout <= 0 {
		timeout = cfg.ResolveTimeout(assistant.TimeoutSeconds, true)
	}

	return &plan{
		assistant: assistantName,
		spec: runtime.AgentSpec{
			Name:         assistantName,
			SystemPrompt: systemPrompt,
			Model:        cfg.ResolveModel(assistant.Model, true),
			MaxTurns:     maxTurns,
			AllowedTools: allowedTools,
		},
		agents:         agents,
		servers:        servers,
		timeoutSeconds: timeout,
		responseSchema: assistant.ResponseSchema,
	}, nil
}
