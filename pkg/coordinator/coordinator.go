package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/giantswarm/shoot/pkg/collector"
	"github.com/giantswarm/shoot/pkg/config"
	"github.com/giantswarm/shoot/pkg/observability"
	"github.com/giantswarm/shoot/pkg/runtime"
)

// Request is one investigation request.
type Request struct {
	// Query is the failure description to investigate.
	Query string

	// Assistant selects the configured assistant; empty means the
	// default (first declared).
	Assistant string

	// TimeoutSeconds overrides the configured investigation timeout
	// when positive.
	TimeoutSeconds int

	// MaxTurns overrides the configured turn budget when positive.
	MaxTurns int

	// Variables are request-time prompt variables; only keys in the
	// assistant's request_variables allow-list are applied.
	Variables map[string]string
}

// InvestigationResult is a completed investigation with its metrics.
type InvestigationResult struct {
	Result      string        `json:"result"`
	Assistant   string        `json:"assistant"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"duration_ms"`
	NumTurns    int           `json:"num_turns"`
	ToolCalls   int           `json:"tool_calls"`
	Delegations int           `json:"delegations"`
	Usage       runtime.Usage `json:"usage"`

	// ResponseSchema names the assistant's configured response schema,
	// empty when none is set.
	ResponseSchema string `json:"-"`
}

// RouterFactory builds the tool router for a set of MCP servers. The
// production factory launches real connections; tests substitute.
type RouterFactory func(specs []collector.ServerSpec) runtime.ToolRouter

// Closer is implemented by routers holding live connections.
type Closer interface {
	Close() error
}

// Coordinator turns configuration and a provider into investigations.
type Coordinator struct {
	configs   *config.Provider
	llm       runtime.Provider
	env       map[string]string
	newRouter RouterFactory
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithRouterFactory replaces the MCP router factory.
func WithRouterFactory(f RouterFactory) Option {
	return func(c *Coordinator) { c.newRouter = f }
}

// WithEnv overrides the environment used for prompt expansion.
func WithEnv(env map[string]string) Option {
	return func(c *Coordinator) { c.env = env }
}

// New creates a Coordinator bound to a config provider and an LLM
// provider.
func New(configs *config.Provider, llm runtime.Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		configs: configs,
		llm:     llm,
		newRouter: func(specs []collector.ServerSpec) runtime.ToolRouter {
			return runtime.NewRegistry(specs)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Investigate runs an investigation to completion.
func (c *Coordinator) Investigate(ctx context.Context, req Request) (*InvestigationResult, error) {
	return c.investigate(ctx, req, nil)
}

// InvestigateStream runs an investigation, emitting chunks as the
// conversation progresses. Failures after streaming has begun are
// delivered in-band as an error chunk in addition to the returned
// error.
func (c *Coordinator) InvestigateStream(ctx context.Context, req Request, emit func(runtime.Chunk)) (*InvestigationResult, error) {
	result, err := c.investigate(ctx, req, emit)
	if err != nil && emit != nil {
		emit(runtime.Chunk{Type: runtime.ChunkError, Error: err.Error()})
	}
	return result, err
}

func (c *Coordinator) investigate(ctx context.Context, req Request, emit func(runtime.Chunk)) (*InvestigationResult, error) {
	cfg, err := c.configs.Get()
	if err != nil {
		return nil, err
	}

	p, err := buildPlan(cfg, c.configs.BaseDir(), req.Assistant, req, c.env)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(p.timeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	router := c.newRouter(p.servers)
	if closer, ok := router.(Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				slog.Warn("Failed to close MCP connections", "error", err)
			}
		}()
	}

	slog.Info("Starting investigation",
		"assistant", p.assistant,
		"query", truncate(req.Query, 100),
		"timeout_seconds", p.timeoutSeconds,
		"max_turns", p.spec.MaxTurns,
	)

	session := runtime.NewSession(c.llm, router, p.agents, cfg.ResolveMaxTurns(0, false))
	started := time.Now()
	runResult, err := session.RunStream(runCtx, p.spec, req.Query, emit)
	if err != nil {
		observability.GetGlobalMetrics().RecordInvestigation(ctx, p.assistant, time.Since(started), 0, 0, err)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &TimeoutError{Assistant: p.assistant, Timeout: timeout}
		}
		return nil, &CollectorError{Assistant: p.assistant, Err: err}
	}
	observability.GetGlobalMetrics().RecordInvestigation(ctx, p.assistant, runResult.Duration,
		runResult.Usage.InputTokens, runResult.Usage.OutputTokens, nil)

	slog.Info("Investigation completed",
		"assistant", p.assistant,
		"duration", runResult.Duration,
		"turns", runResult.Turns,
		"tool_calls", runResult.ToolCalls,
		"delegations", runResult.Delegations,
	)

	return &InvestigationResult{
		Result:         runResult.Text,
		Assistant:      p.assistant,
		Duration:       runResult.Duration,
		DurationMS:     runResult.Duration.Milliseconds(),
		NumTurns:       runResult.Turns,
		ToolCalls:      runResult.ToolCalls,
		Delegations:    runResult.Delegations,
		Usage:          runResult.Usage,
		ResponseSchema: p.responseSchema,
	}, nil
}

// Ready reports whether an investigation plan can be assembled for the
// named assistant (empty = default). It proves configuration, prompts
// and references without spending tokens.
func (c *Coordinator) Ready(assistantName string) bool {
	cfg, err := c.configs.Get()
	if err != nil {
		slog.Error("Coordinator not ready", "error", err)
		return false
	}
	if _, err := buildPlan(cfg, c.configs.BaseDir(), assistantName, Request{}, c.env); err != nil {
		slog.Error("Coordinator not ready", "error", err)
		return false
	}
	return true
}

// Assistants lists the configured assistant names in declaration
// order.
func (c *Coordinator) Assistants() ([]string, error) {
	cfg, err := c.configs.Get()
	if err != nil {
		return nil, err
	}
	return cfg.AssistantNames(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
