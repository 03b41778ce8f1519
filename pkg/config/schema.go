package config

import "fmt"

// ResponseFormat selects the output shaping for agent responses.
type ResponseFormat string

const (
	// FormatHuman renders responses as human-readable markdown.
	FormatHuman ResponseFormat = "human"

	// FormatJSON returns raw JSON for machine consumption.
	FormatJSON ResponseFormat = "json"
)

// Validate checks that the format is a known value.
func (f ResponseFormat) Validate() error {
	switch f {
	case FormatHuman, FormatJSON, "":
		return nil
	default:
		return fmt.Errorf("unknown response format %q (expected %q or %q)", f, FormatHuman, FormatJSON)
	}
}

// ResponseSchemaConfig references a JSON Schema document that describes
// an agent's structured response format.
type ResponseSchemaConfig struct {
	// File is the path to the JSON Schema document, relative to the
	// config file's directory.
	File string `yaml:"file" json:"file" jsonschema:"title=Schema File,description=Path to JSON Schema file relative to the config directory"`

	// Description is shown to operators listing available schemas.
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"title=Description"`

	// Format selects human (markdown) or json output.
	Format ResponseFormat `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,enum=human,enum=json,default=human"`
}

// SetDefaults applies default values.
func (c *ResponseSchemaConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = FormatHuman
	}
}

// Validate checks required fields.
func (c *ResponseSchemaConfig) Validate() error {
	if c.File == "" {
		return fmt.Errorf("file is required")
	}
	return c.Format.Validate()
}
