package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/giantswarm/shoot/pkg/config"
	"github.com/giantswarm/shoot/pkg/coordinator"
	"github.com/giantswarm/shoot/pkg/observability"
	"github.com/giantswarm/shoot/pkg/runtime"
	"github.com/giantswarm/shoot/pkg/server"
)

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Config string `short:"c" help:"Configuration file path (defaults to $SHOOT_CONFIG, then shoot.yaml)." type:"path"`
	Port   int    `help:"Port to listen on (overrides SHOOT_PORT)."`
	Watch  bool   `help:"Watch the config file and reload on changes."`
	Strict bool   `help:"Fail on unexpanded environment variables in the config."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	configPath := config.ResolveConfigPath(c.Config)
	_ = config.LoadDotEnvForConfig(configPath)

	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("settings load failed: %w", err)
	}
	if c.Port > 0 {
		settings.Port = c.Port
	}

	configs, err := config.NewProvider(configPath, config.LoadOptions{Strict: c.Strict})
	if err != nil {
		return err
	}
	defer configs.Close()

	if _, err := configs.Reload(); err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if c.Watch {
		if err := configs.Watch(ctx); err != nil {
			return fmt.Errorf("config watch failed: %w", err)
		}
	}

	obs := observability.NewManager(observability.Config{
		Tracing: observability.TracingConfig{
			Enabled:     settings.OTLPEndpoint != "",
			Endpoint:    settings.OTLPEndpoint,
			ServiceName: settings.ServiceName,
		},
		Metrics: observability.MetricsConfig{Enabled: true},
	})
	if err := obs.Initialize(ctx); err != nil {
		return fmt.Errorf("observability setup failed: %w", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()
	observability.SetGlobalMetrics(obs.GetMetrics())

	// Settings-derived prompt variables resolve ${wc_cluster} and
	// ${org_ns} references in prompts, real environment wins.
	env := config.ProcessEnv()
	for k, v := range settings.PromptVariables() {
		if _, ok := env[k]; !ok {
			env[k] = v
		}
	}

	llm := runtime.NewAnthropicProvider(settings.AnthropicAPIKey)
	coord := coordinator.New(configs, llm, coordinator.WithEnv(env))

	srv := server.New(settings, configs, coord,
		server.WithObservability(obs),
		server.WithLogger(slog.Default()),
	)

	slog.Info("starting shoot",
		"config", configPath,
		"port", settings.Port,
		"watch", c.Watch,
	)
	return srv.Start(ctx)
}
