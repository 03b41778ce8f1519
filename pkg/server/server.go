// Package server exposes the investigation service over HTTP: probes,
// assistant discovery, schema serving, and the investigate/stream
// endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giantswarm/shoot/pkg/collector"
	"github.com/giantswarm/shoot/pkg/config"
	"github.com/giantswarm/shoot/pkg/coordinator"
	"github.com/giantswarm/shoot/pkg/observability"
	"github.com/giantswarm/shoot/pkg/runtime"
)

// timeoutGrace is added to the investigation timeout for the HTTP
// deadline, so the coordinator's own timeout fires first and the
// client gets the richer error.
const timeoutGrace = 30 * time.Second

// Investigator is the coordinator surface the server depends on.
type Investigator interface {
	Investigate(ctx context.Context, req coordinator.Request) (*coordinator.InvestigationResult, error)
	InvestigateStream(ctx context.Context, req coordinator.Request, emit func(chunk runtime.Chunk)) (*coordinator.InvestigationResult, error)
	Ready(assistantName string) bool
}

// Server is the shoot HTTP server.
type Server struct {
	settings *config.Settings
	configs  *config.Provider
	coord    Investigator
	obs      *observability.Manager
	log      *slog.Logger

	preflight func(ctx context.Context) collector.PreflightResults

	httpServer *http.Server
}

// Option configures the server.
type Option func(*Server)

// WithObservability sets the tracing/metrics manager.
func WithObservability(obs *observability.Manager) Option {
	return func(s *Server) { s.obs = obs }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a Server. The config provider serves assistant listings
// and schemas; the investigator runs the actual work.
func New(settings *config.Settings, configs *config.Provider, coord Investigator, opts ...Option) *Server {
	s := &Server{
		settings: settings,
		configs:  configs,
		coord:    coord,
		obs:      observability.NoopManager(),
		log:      slog.Default(),
		preflight: func(ctx context.Context) collector.PreflightResults {
			return collector.RunPreflightChecks(ctx, settings)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(observability.HTTPMiddleware(s.obs))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/schema", s.handleReportSchema)
	r.Get("/assistants", s.handleListAssistants)
	r.Get("/assistants/{assistant}/schema", s.handleAssistantSchema)
	r.Post("/", s.handleInvestigate)
	r.Post("/stream", s.handleStream)

	return r
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.settings.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return <-errCh
	}
}

// WithPreflight overrides the deep readiness checks, used by tests to
// avoid the real filesystem paths.
func WithPreflight(f func(ctx context.Context) collector.PreflightResults) Option {
	return func(s *Server) { s.preflight = f }
}
