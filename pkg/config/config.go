// Package config defines the shoot configuration schema and loader.
//
// A shoot.yaml file declares assistants (coordinators), subagents
// (collectors), MCP servers and response schemas. The loader expands
// environment variables, decodes strictly, and validates references
// and file paths before anything is allowed to run against the config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ShootConfig is the root configuration, immutable after a successful
// load. The name-keyed sections are looked up by name; AssistantOrder
// preserves the YAML document order of the assistants section so that
// "first assistant" defaulting is deterministic.
type ShootConfig struct {
	// Version is the configuration format version.
	Version string `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,default=1.0"`

	// Defaults holds system-wide default values.
	Defaults Defaults `yaml:"defaults,omitempty" json:"defaults,omitempty"`

	// ResponseSchemas maps schema names to response schema configs.
	ResponseSchemas map[string]*ResponseSchemaConfig `yaml:"response_schemas,omitempty" json:"response_schemas,omitempty"`

	// MCPServers maps server names to MCP server configs.
	MCPServers map[string]*MCPServerConfig `yaml:"mcp_servers,omitempty" json:"mcp_servers,omitempty"`

	// Subagents maps subagent names to subagent configs.
	Subagents map[string]*SubagentConfig `yaml:"subagents,omitempty" json:"subagents,omitempty"`

	// Assistants maps assistant names to assistant configs.
	Assistants map[string]*AssistantConfig `yaml:"assistants,omitempty" json:"assistants,omitempty"`

	// AssistantOrder holds assistant names in YAML document order.
	// Populated by the loader; not part of the file format.
	AssistantOrder []string `yaml:"-" json:"-"`
}

// SetDefaults applies default values throughout the config.
func (c *ShootConfig) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	c.Defaults.SetDefaults()
	for _, s := range c.ResponseSchemas {
		if s != nil {
			s.SetDefaults()
		}
	}
	for _, a := range c.Assistants {
		if a != nil {
			a.SetDefaults()
		}
	}
}

// Validate checks every section's own invariants. Cross-reference and
// file-existence validation are separate passes run by the loader so
// their violations can be aggregated.
func (c *ShootConfig) Validate() error {
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}
	for name, s := range c.ResponseSchemas {
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("response schema '%s' validation failed: %w", name, err)
		}
	}
	for name, m := range c.MCPServers {
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("mcp server '%s' validation failed: %w", name, err)
		}
	}
	for name, s := range c.Subagents {
		if s == nil {
			continue
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("subagent '%s' validation failed: %w", name, err)
		}
	}
	for name, a := range c.Assistants {
		if a == nil {
			continue
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("assistant '%s' validation failed: %w", name, err)
		}
	}
	return nil
}

// GetAssistant returns an assistant by name.
func (c *ShootConfig) GetAssistant(name string) (*AssistantConfig, error) {
	a, ok := c.Assistants[name]
	if !ok || a == nil {
		return nil, fmt.Errorf("assistant '%s' not found (available: %v)", name, c.AssistantNames())
	}
	return a, nil
}

// GetSubagent returns a subagent by name.
func (c *ShootConfig) GetSubagent(name string) (*SubagentConfig, error) {
	s, ok := c.Subagents[name]
	if !ok || s == nil {
		return nil, fmt.Errorf("subagent '%s' not found (available: %v)", name, sortedKeys(c.Subagents))
	}
	return s, nil
}

// GetMCPServer returns an MCP server config by name.
func (c *ShootConfig) GetMCPServer(name string) (*MCPServerConfig, error) {
	m, ok := c.MCPServers[name]
	if !ok || m == nil {
		return nil, fmt.Errorf("mcp server '%s' not found (available: %v)", name, sortedKeys(c.MCPServers))
	}
	return m, nil
}

// GetResponseSchema returns a response schema config by name, or nil
// when the name is empty or unknown.
func (c *ShootConfig) GetResponseSchema(name string) *ResponseSchemaConfig {
	if name == "" {
		return nil
	}
	return c.ResponseSchemas[name]
}

// AssistantNames returns assistant names in YAML document order.
func (c *ShootConfig) AssistantNames() []string {
	if len(c.AssistantOrder) == len(c.Assistants) {
		return c.AssistantOrder
	}
	return sortedKeys(c.Assistants)
}

// DefaultAssistant returns the first assistant in document order.
func (c *ShootConfig) DefaultAssistant() (string, error) {
	names := c.AssistantNames()
	if len(names) == 0 {
		return "", fmt.Errorf("no assistants defined in configuration")
	}
	return names[0], nil
}

// ResolveModel returns the model to use, falling back to the defaults
// when empty. Orchestrators and collectors have separate defaults.
func (c *ShootConfig) ResolveModel(model string, orchestrator bool) string {
	if model != "" {
		return model
	}
	if orchestrator {
		return c.Defaults.Models.Orchestrator
	}
	return c.Defaults.Models.Collector
}

// ResolveTimeout returns the timeout in seconds, falling back to the
// defaults when zero.
func (c *ShootConfig) ResolveTimeout(timeout int, investigation bool) int {
	if timeout > 0 {
		return timeout
	}
	if investigation {
		return c.Defaults.Timeouts.Investigation
	}
	return c.Defaults.Timeouts.Subagent
}

// ResolveMaxTurns returns the turn budget, falling back to the defaults
// when zero.
func (c *ShootConfig) ResolveMaxTurns(maxTurns int, investigation bool) int {
	if maxTurns > 0 {
		return maxTurns
	}
	if investigation {
		return c.Defaults.MaxTurns.Investigation
	}
	return c.Defaults.MaxTurns.Subagent
}

// ValidateReferences checks that every name reference resolves. All
// violations are returned, not just the first, so an operator can fix
// a config in one pass.
func (c *ShootConfig) ValidateReferences() []string {
	var errs []string

	for _, name := range c.AssistantNames() {
		assistant := c.Assistants[name]
		if assistant == nil {
			continue
		}
		for _, sub := range assistant.Subagents {
			if _, ok := c.Subagents[sub]; !ok {
				errs = append(errs, fmt.Sprintf("assistant '%s' references unknown subagent '%s'", name, sub))
			}
		}
		for _, srv := range assistant.MCPServers {
			if _, ok := c.MCPServers[srv]; !ok {
				errs = append(errs, fmt.Sprintf("assistant '%s' references unknown mcp_server '%s'", name, srv))
			}
		}
		if assistant.ResponseSchema != "" {
			if _, ok := c.ResponseSchemas[assistant.ResponseSchema]; !ok {
				errs = append(errs, fmt.Sprintf("assistant '%s' references unknown response_schema '%s'", name, assistant.ResponseSchema))
			}
		}
	}

	for _, name := range sortedKeys(c.Subagents) {
		subagent := c.Subagents[name]
		if subagent == nil {
			continue
		}
		for _, srv := range subagent.MCPServers {
			if _, ok := c.MCPServers[srv]; !ok {
				errs = append(errs, fmt.Sprintf("subagent '%s' references unknown mcp_server '%s'", name, srv))
			}
		}
		if subagent.ResponseSchema != "" {
			if _, ok := c.ResponseSchemas[subagent.ResponseSchema]; !ok {
				errs = append(errs, fmt.Sprintf("subagent '%s' references unknown response_schema '%s'", name, subagent.ResponseSchema))
			}
		}
	}

	return errs
}

// ValidateFiles checks that every path-valued field resolves to an
// existing file relative to baseDir. All missing files are returned.
func (c *ShootConfig) ValidateFiles(baseDir string) []string {
	var errs []string

	for _, name := range sortedKeys(c.ResponseSchemas) {
		schema := c.ResponseSchemas[name]
		if schema == nil {
			continue
		}
		path := ResolvePath(baseDir, schema.File)
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, fmt.Sprintf("response schema '%s' file not found: %s", name, path))
		}
	}

	for _, name := range c.AssistantNames() {
		assistant := c.Assistants[name]
		if assistant == nil {
			continue
		}
		path := ResolvePath(baseDir, assistant.SystemPromptFile)
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, fmt.Sprintf("assistant '%s' prompt file not found: %s", name, path))
		}
	}

	for _, name := range sortedKeys(c.Subagents) {
		subagent := c.Subagents[name]
		if subagent == nil {
			continue
		}
		path := ResolvePath(baseDir, subagent.SystemPromptFile)
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, fmt.Sprintf("subagent '%s' prompt file not found: %s", name, path))
		}
	}

	return errs
}

// ResolvePath resolves a relative path against a base directory.
// Absolute paths pass through unchanged.
func ResolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(baseDir, path))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
