// Package collector turns configuration into the concrete material an
// investigation needs: MCP server launch specs, restricted tool lists,
// and subagent definitions with their prompts loaded.
package collector

import (
	"fmt"
	"strings"

	"github.com/giantswarm/shoot/pkg/config"
)

// ServerSpec is a ready-to-launch MCP server: the resolved endpoint
// with env filtering and in-cluster fallback already applied, plus the
// tools the server exposes.
type ServerSpec struct {
	Name     string
	Endpoint config.Endpoint
	Tools    []string
}

// BuildServerSpec resolves a single MCP server config into a launch
// spec. For local servers, env entries whose value is empty are
// dropped; when no env vars survive and in_cluster_fallback is set,
// --in-cluster is appended to the args exactly once.
func BuildServerSpec(name string, mc *config.MCPServerConfig) ServerSpec {
	spec := ServerSpec{Name: name, Tools: mc.Tools}

	switch ep := mc.Endpoint().(type) {
	case config.RemoteURL:
		spec.Endpoint = ep

	case config.LocalCommand:
		env := make(map[string]string, len(ep.Env))
		for k, v := range ep.Env {
			if v != "" {
				env[k] = v
			}
		}

		args := append([]string(nil), ep.Args...)
		if len(env) == 0 && mc.InClusterFallback && !contains(args, config.InClusterArg) {
			args = append(args, config.InClusterArg)
		}

		spec.Endpoint = config.LocalCommand{Command: ep.Command, Args: args, Env: env}
	}

	return spec
}

// BuildServerSpecs collects every MCP server an assistant needs: the
// servers it uses directly, then the servers of each of its subagents.
// Each server appears once, first reference wins, and the result order
// follows the configuration's declared order.
func BuildServerSpecs(cfg *config.ShootConfig, assistantName string) ([]ServerSpec, error) {
	assistant, err := cfg.GetAssistant(assistantName)
	if err != nil {
		return nil, err
	}

	var specs []ServerSpec
	seen := make(map[string]struct{})

	add := func(mcpName string) error {
		if _, ok := seen[mcpName]; ok {
			return nil
		}
		mc, err := cfg.GetMCPServer(mcpName)
		if err != nil {
			return err
		}
		seen[mcpName] = struct{}{}
		specs = append(specs, BuildServerSpec(mcpName, mc))
		return nil
	}

	for _, mcpName := range assistant.MCPServers {
		if err := add(mcpName); err != nil {
			return nil, err
		}
	}
	for _, subagentName := range assistant.Subagents {
		subagent, err := cfg.GetSubagent(subagentName)
		if err != nil {
			return nil, err
		}
		for _, mcpName := range subagent.MCPServers {
			if err := add(mcpName); err != nil {
				return nil, err
			}
		}
	}

	return specs, nil
}

// ToolsForSubagent returns the fully-qualified tool names a subagent
// may call, in configuration order. An explicit allowed_tools list is
// the whole surface; otherwise the tools of the subagent's own MCP
// servers are derived. Either way a subagent never sees beyond its
// own servers.
func ToolsForSubagent(cfg *config.ShootConfig, subagentName string) ([]string, error) {
	subagent, err := cfg.GetSubagent(subagentName)
	if err != nil {
		return nil, err
	}

	if len(subagent.AllowedTools) > 0 {
		return append([]string(nil), subagent.AllowedTools...), nil
	}

	var tools []string
	for _, mcpName := range subagent.MCPServers {
		mc, err := cfg.GetMCPServer(mcpName)
		if err != nil {
			return nil, err
		}
		tools = append(tools, config.ToolsForServer(mcpName, mc.Tools)...)
	}
	return tools, nil
}

// ToolsForAssistant returns the fully-qualified MCP tool names an
// assistant may call directly, not counting Task delegation.
func ToolsForAssistant(cfg *config.ShootConfig, assistantName string) ([]string, error) {
	assistant, err := cfg.GetAssistant(assistantName)
	if err != nil {
		return nil, err
	}

	var tools []string
	for _, mcpName := range assistant.MCPServers {
		mc, err := cfg.GetMCPServer(mcpName)
		if err != nil {
			return nil, err
		}
		tools = append(tools, config.ToolsForServer(mcpName, mc.Tools)...)
	}
	return tools, nil
}

// AgentDefinition describes one subagent ready for delegation: prompt
// loaded and substituted, tool surface restricted, model resolved.
type AgentDefinition struct {
	Name        string
	Description string
	Prompt      string
	Tools       []string
	Model       string
}

// BuildAgentDefinitions builds the delegation targets for an
// assistant, one per configured subagent, in declared order.
func BuildAgentDefinitions(cfg *config.ShootConfig, assistantName, baseDir string, env map[string]string) ([]AgentDefinition, error) {
	assistant, err := cfg.GetAssistant(assistantName)
	if err != nil {
		return nil, err
	}

	defs := make([]AgentDefinition, 0, len(assistant.Subagents))
	for _, subagentName := range assistant.Subagents {
		subagent, err := cfg.GetSubagent(subagentName)
		if err != nil {
			return nil, err
		}

		promptPath := config.ResolvePath(baseDir, subagent.SystemPromptFile)
		prompt, err := config.LoadPrompt(promptPath, env, subagent.PromptVariables)
		if err != nil {
			return nil, fmt.Errorf("subagent '%s': %w", subagentName, err)
		}

		tools, err := ToolsForSubagent(cfg, subagentName)
		if err != nil {
			return nil, err
		}

		defs = append(defs, AgentDefinition{
			Name:        subagentName,
			Description: strings.TrimSpace(subagent.Description),
			Prompt:      prompt,
			Tools:       tools,
			Model:       cfg.ResolveModel(subagent.Model, false),
		})
	}

	return defs, nil
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
