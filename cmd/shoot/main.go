// Command shoot is the Kubernetes diagnostics service.
//
// Usage:
//
//	shoot serve --config shoot.yaml
//	shoot validate shoot.yaml --strict
//	shoot schema > config-schema.json
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/giantswarm/shoot"
	"github.com/giantswarm/shoot/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP server."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate the configuration JSON Schema."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info" env:"LOG_LEVEL"`
	LogFile   string `help:"Log file path (empty = stderr)." env:"LOG_FILE"`
	LogFormat string `help:"Log format (text or json)." default:"text" env:"LOG_FORMAT"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(shoot.GetVersion())
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("shoot"),
		kong.Description("Configuration-driven Kubernetes diagnostics with delegated collector agents."),
		kong.UsageOnError(),
	)

	cleanup, err := logger.Init(logger.Options{
		Level:  cli.LogLevel,
		File:   cli.LogFile,
		Format: cli.LogFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
