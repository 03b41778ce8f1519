package config

import "fmt"

// SubagentConfig configures a collector subagent. Subagents are only
// reachable through an assistant's delegation tool and see exactly the
// tools derived from their declared MCP servers.
type SubagentConfig struct {
	// Description tells the coordinator when to delegate to this
	// subagent.
	Description string `yaml:"description" json:"description" jsonschema:"title=Description,description=When the coordinator should use this subagent"`

	// SystemPromptFile is the path to the subagent's system prompt,
	// relative to the config file's directory.
	SystemPromptFile string `yaml:"system_prompt_file" json:"system_prompt_file" jsonschema:"title=System Prompt File,description=Prompt file path relative to the config directory"`

	// Model overrides defaults.models.collector when set.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model to use (empty = defaults.models.collector)"`

	// MCPServers lists the MCP server names this subagent can access.
	MCPServers []string `yaml:"mcp_servers,omitempty" json:"mcp_servers,omitempty" jsonschema:"title=MCP Servers,description=MCP server names this subagent can access"`

	// AllowedTools explicitly overrides the derived tool list. Empty
	// means all tools from MCPServers.
	AllowedTools []string `yaml:"allowed_tools,omitempty" json:"allowed_tools,omitempty" jsonschema:"title=Allowed Tools,description=Explicit tool override (empty = all tools from mcp_servers)"`

	// PromptVariables are substituted into the system prompt.
	PromptVariables map[string]string `yaml:"prompt_variables,omitempty" json:"prompt_variables,omitempty" jsonschema:"title=Prompt Variables"`

	// RequestVariables names variables a caller's request may inject
	// into the prompt. Anything not listed here is dropped.
	RequestVariables []string `yaml:"request_variables,omitempty" json:"request_variables,omitempty" jsonschema:"title=Request Variables"`

	// ResponseSchema references a response_schemas entry by name.
	ResponseSchema string `yaml:"response_schema,omitempty" json:"response_schema,omitempty" jsonschema:"title=Response Schema,description=Name of a response_schemas entry"`
}

// Validate checks required fields.
func (c *SubagentConfig) Validate() error {
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.SystemPromptFile == "" {
		return fmt.Errorf("system_prompt_file is required")
	}
	return nil
}
