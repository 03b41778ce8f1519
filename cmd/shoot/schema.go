package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/giantswarm/shoot/pkg/config"
)

// SchemaCmd generates the JSON Schema for the configuration file.
// Output goes to stdout so it can be redirected or piped.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&config.ShootConfig{})
	schema.ID = "https://giantswarm.io/schemas/shoot-config.json"
	schema.Title = "Shoot Configuration Schema"
	schema.Description = "Configuration schema for the shoot Kubernetes diagnostics service"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
