package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/shoot/pkg/config"
)

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	Config string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`

	Strict      bool `short:"s" help:"Fail on unexpanded environment variables."`
	PrintConfig bool `short:"p" name:"print-config" help:"Print the expanded configuration (defaults applied, env vars resolved)."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	_ = config.LoadDotEnvForConfig(c.Config)

	cfg, err := config.Load(c.Config, config.LoadOptions{Strict: c.Strict})
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) && len(cfgErr.Problems) > 0 {
			fmt.Fprintf(os.Stderr, "%s: %s\n", c.Config, cfgErr.Message)
			for _, p := range cfgErr.Problems {
				fmt.Fprintf(os.Stderr, "  - %s\n", p)
			}
			return fmt.Errorf("config validation failed")
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", c.Config, err)
		return fmt.Errorf("config validation failed")
	}

	if c.PrintConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Fprintf(os.Stdout, "# Expanded configuration: %s\n%s", c.Config, out)
		return nil
	}

	names := cfg.AssistantNames()
	fmt.Printf("%s: valid (%d assistants: %v)\n", c.Config, len(names), names)
	return nil
}
