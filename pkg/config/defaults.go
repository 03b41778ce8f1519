package config

import "fmt"

// Built-in fallbacks applied by SetDefaults when the config file leaves
// the defaults section (or parts of it) empty.
const (
	DefaultOrchestratorModel = "claude-sonnet-4-5-20250929"
	DefaultCollectorModel    = "claude-3-5-haiku-20241022"

	DefaultInvestigationTimeout = 300
	DefaultSubagentTimeout      = 60

	DefaultInvestigationMaxTurns = 15
	DefaultSubagentMaxTurns      = 10
)

// DefaultsModels holds default model names.
type DefaultsModels struct {
	// Orchestrator is the default model for assistants (coordinators).
	Orchestrator string `yaml:"orchestrator,omitempty" json:"orchestrator,omitempty" jsonschema:"title=Orchestrator Model,description=Default model for assistant/coordinator agents"`

	// Collector is the default model for collector subagents.
	Collector string `yaml:"collector,omitempty" json:"collector,omitempty" jsonschema:"title=Collector Model,description=Default model for collector subagents"`
}

// DefaultsTimeouts holds default timeouts in seconds.
type DefaultsTimeouts struct {
	Investigation int `yaml:"investigation,omitempty" json:"investigation,omitempty" jsonschema:"title=Investigation Timeout,description=Default timeout for investigations in seconds,minimum=30,maximum=600"`
	Subagent      int `yaml:"subagent,omitempty" json:"subagent,omitempty" jsonschema:"title=Subagent Timeout,description=Default timeout for subagent operations in seconds,minimum=10,maximum=300"`
}

// DefaultsMaxTurns holds default conversation turn budgets.
type DefaultsMaxTurns struct {
	Investigation int `yaml:"investigation,omitempty" json:"investigation,omitempty" jsonschema:"title=Investigation Max Turns,description=Maximum conversation turns for investigations,minimum=5,maximum=50"`
	Subagent      int `yaml:"subagent,omitempty" json:"subagent,omitempty" jsonschema:"title=Subagent Max Turns,description=Maximum conversation turns for subagents,minimum=3,maximum=30"`
}

// DefaultsResponse holds the default response shaping.
type DefaultsResponse struct {
	Format ResponseFormat `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Response Format,enum=human,enum=json,default=human"`
}

// Defaults holds system-wide default values, overridable per assistant
// or subagent.
type Defaults struct {
	Models   DefaultsModels   `yaml:"models,omitempty" json:"models,omitempty"`
	Timeouts DefaultsTimeouts `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`
	MaxTurns DefaultsMaxTurns `yaml:"max_turns,omitempty" json:"max_turns,omitempty"`
	Response DefaultsResponse `yaml:"response,omitempty" json:"response,omitempty"`
}

// SetDefaults fills zero values with the built-in fallbacks.
func (d *Defaults) SetDefaults() {
	if d.Models.Orchestrator == "" {
		d.Models.Orchestrator = DefaultOrchestratorModel
	}
	if d.Models.Collector == "" {
		d.Models.Collector = DefaultCollectorModel
	}
	if d.Timeouts.Investigation == 0 {
		d.Timeouts.Investigation = DefaultInvestigationTimeout
	}
	if d.Timeouts.Subagent == 0 {
		d.Timeouts.Subagent = DefaultSubagentTimeout
	}
	if d.MaxTurns.Investigation == 0 {
		d.MaxTurns.Investigation = DefaultInvestigationMaxTurns
	}
	if d.MaxTurns.Subagent == 0 {
		d.MaxTurns.Subagent = DefaultSubagentMaxTurns
	}
	if d.Response.Format == "" {
		d.Response.Format = FormatHuman
	}
}

// Validate checks the bounds on timeouts and turn budgets.
func (d *Defaults) Validate() error {
	if d.Timeouts.Investigation < 30 || d.Timeouts.Investigation > 600 {
		return fmt.Errorf("defaults.timeouts.investigation must be between 30 and 600 seconds, got %d", d.Timeouts.Investigation)
	}
	if d.Timeouts.Subagent < 10 || d.Timeouts.Subagent > 300 {
		return fmt.Errorf("defaults.timeouts.subagent must be between 10 and 300 seconds, got %d", d.Timeouts.Subagent)
	}
	if d.MaxTurns.Investigation < 5 || d.MaxTurns.Investigation > 50 {
		return fmt.Errorf("defaults.max_turns.investigation must be between 5 and 50, got %d", d.MaxTurns.Investigation)
	}
	if d.MaxTurns.Subagent < 3 || d.MaxTurns.Subagent > 30 {
		return fmt.Errorf("defaults.max_turns.subagent must be between 3 and 30, got %d", d.MaxTurns.Subagent)
	}
	if err := d.Response.Format.Validate(); err != nil {
		return fmt.Errorf("defaults.response.format: %w", err)
	}
	return nil
}
