package config

import "fmt"

// TaskTool is the delegation primitive. An assistant with allowed_tools
// of exactly [TaskTool] can only act through its subagents, which is
// the hierarchical isolation the system is built around.
const TaskTool = "Task"

// AssistantConfig configures a coordinator assistant.
type AssistantConfig struct {
	// Description is shown when listing assistants.
	Description string `yaml:"description" json:"description" jsonschema:"title=Description"`

	// SystemPromptFile is the path to the assistant's system prompt,
	// relative to the config file's directory.
	SystemPromptFile string `yaml:"system_prompt_file" json:"system_prompt_file" jsonschema:"title=System Prompt File"`

	// Model overrides defaults.models.orchestrator when set.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model to use (empty = defaults.models.orchestrator)"`

	// AllowedTools lists the tools the assistant itself can call.
	// Defaults to just the Task delegation tool; direct MCP tool names
	// here defeat the isolation model and should be avoided.
	AllowedTools []string `yaml:"allowed_tools,omitempty" json:"allowed_tools,omitempty" jsonschema:"title=Allowed Tools,description=Tools the assistant can use (typically just Task)"`

	// MCPServers lists MCP servers the assistant can access directly.
	// Normally empty: the coordinator delegates instead of touching
	// tools itself.
	MCPServers []string `yaml:"mcp_servers,omitempty" json:"mcp_servers,omitempty" jsonschema:"title=MCP Servers"`

	// Subagents lists the subagent names this assistant may delegate to.
	Subagents []string `yaml:"subagents,omitempty" json:"subagents,omitempty" jsonschema:"title=Subagents,description=Subagent names this assistant can delegate to"`

	// ResponseSchema references a response_schemas entry by name.
	ResponseSchema string `yaml:"response_schema,omitempty" json:"response_schema,omitempty" jsonschema:"title=Response Schema"`

	// TimeoutSeconds bounds an investigation. Zero means
	// defaults.timeouts.investigation.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty" jsonschema:"title=Timeout Seconds,minimum=0,maximum=600"`

	// MaxTurns bounds the conversation. Zero means
	// defaults.max_turns.investigation.
	MaxTurns int `yaml:"max_turns,omitempty" json:"max_turns,omitempty" jsonschema:"title=Max Turns,minimum=0,maximum=50"`

	// PromptVariables are substituted into the system prompt.
	PromptVariables map[string]string `yaml:"prompt_variables,omitempty" json:"prompt_variables,omitempty" jsonschema:"title=Prompt Variables"`

	// RequestVariables names variables a caller's request may inject
	// into the prompt. Anything not listed here is silently dropped.
	RequestVariables []string `yaml:"request_variables,omitempty" json:"request_variables,omitempty" jsonschema:"title=Request Variables"`
}

// SetDefaults applies default values.
func (c *AssistantConfig) SetDefaults() {
	if len(c.AllowedTools) == 0 {
		c.AllowedTools = []string{TaskTool}
	}
}

// Validate checks required fields and bounds.
func (c *AssistantConfig) Validate() error {
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.SystemPromptFile == "" {
		return fmt.Errorf("system_prompt_file is required")
	}
	if c.TimeoutSeconds < 0 || c.TimeoutSeconds > 600 {
		return fmt.Errorf("timeout_seconds must be between 0 and 600, got %d", c.TimeoutSeconds)
	}
	if c.MaxTurns < 0 || c.MaxTurns > 50 {
		return fmt.Errorf("max_turns must be between 0 and 50, got %d", c.MaxTurns)
	}
	return nil
}
