package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/giantswarm/shoot/pkg/config"
	"github.com/giantswarm/shoot/pkg/coordinator"
	"github.com/giantswarm/shoot/pkg/formatter"
	"github.com/giantswarm/shoot/pkg/runtime"
)

type ctxKey int

const requestIDKey ctxKey = iota

// investigateRequest is the POST / and POST /stream body.
type investigateRequest struct {
	Query          string            `json:"query"`
	Assistant      string            `json:"assistant"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	MaxTurns       int               `json:"max_turns"`
	Structured     bool              `json:"structured"`
	Variables      map[string]string `json:"variables"`
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configs.Get()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}

	checks := map[string]any{
		"status":      "ready",
		"coordinator": s.coord.Ready(""),
		"assistants":  cfg.AssistantNames(),
	}

	if r.URL.Query().Get("deep") == "true" {
		results := s.preflight(r.Context())
		checks["preflight"] = results
		if !results.AllValid() {
			checks["status"] = "not_ready"
			writeJSON(w, http.StatusServiceUnavailable, checks)
			return
		}
	}

	if checks["coordinator"] == false {
		checks["status"] = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, checks)
		return
	}

	writeJSON(w, http.StatusOK, checks)
}

func (s *Server) handleListAssistants(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configs.Get()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	assistants := make(map[string]any, len(cfg.Assistants))
	for name, assistant := range cfg.Assistants {
		assistants[name] = map[string]any{
			"description":       assistant.Description,
			"subagents":         assistant.Subagents,
			"response_schema":   assistant.ResponseSchema,
			"request_variables": assistant.RequestVariables,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"assistants": assistants})
}

func (s *Server) handleAssistantSchema(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.configs.Get()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	name := chi.URLParam(r, "assistant")
	if _, err := cfg.GetAssistant(name); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":     fmt.Sprintf("assistant '%s' not found", name),
			"available": cfg.AssistantNames(),
		})
		return
	}

	schema, schemaConfig := formatter.SchemaForAssistant(cfg, name, s.configs.BaseDir())
	if schema == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"assistant": name,
			"schema":    nil,
			"message":   "No response schema configured for this assistant",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assistant":   name,
		"schema":      schema,
		"format":      schemaConfig.Format,
		"description": schemaConfig.Description,
	})
}

func (s *Server) handleReportSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, coordinator.Schema)
}

func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	id := requestID(r.Context())

	req, status, errPayload := s.decodeInvestigateRequest(r)
	if errPayload != nil {
		writeJSON(w, status, errPayload)
		return
	}

	timeoutSeconds := req.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = s.settings.TimeoutSeconds
	}
	httpTimeout := time.Duration(timeoutSeconds)*time.Second + timeoutGrace

	s.log.Info("starting investigation",
		"request_id", id,
		"assistant", req.Assistant,
		"query_length", len(req.Query),
		"timeout_seconds", timeoutSeconds,
	)

	ctx, cancel := context.WithTimeout(r.Context(), httpTimeout)
	defer cancel()

	result, err := s.coord.Investigate(ctx, coordinator.Request{
		Query:          req.Query,
		Assistant:      req.Assistant,
		TimeoutSeconds: req.TimeoutSeconds,
		MaxTurns:       req.MaxTurns,
		Variables:      req.Variables,
	})
	if err != nil {
		var timeoutErr *coordinator.TimeoutError
		if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
			s.log.Error("investigation timed out", "request_id", id)
			writeJSON(w, http.StatusGatewayTimeout, map[string]any{
				"error":           "investigation timed out",
				"request_id":      id,
				"timeout_seconds": int(httpTimeout.Seconds()),
			})
			return
		}
		s.log.Error("investigation failed", "request_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":      err.Error(),
			"request_id": id,
		})
		return
	}

	response := map[string]any{
		"result":     result.Result,
		"request_id": id,
		"assistant":  result.Assistant,
		"metrics": map[string]any{
			"duration_ms": result.DurationMS,
			"num_turns":   result.NumTurns,
			"tool_calls":  result.ToolCalls,
			"delegations": result.Delegations,
			"usage": map[string]any{
				"input_tokens":  result.Usage.InputTokens,
				"output_tokens": result.Usage.OutputTokens,
			},
		},
	}

	s.addStructuredOutput(r.Context(), response, result, req.Structured)

	s.log.Info("investigation completed", "request_id", id, "num_turns", result.NumTurns)
	writeJSON(w, http.StatusOK, response)
}

// addStructuredOutput attaches a "structured" payload when the
// assistant's schema format is JSON, or when the caller asked for it
// and the result parses as a diagnostic report.
func (s *Server) addStructuredOutput(ctx context.Context, response map[string]any, result *coordinator.InvestigationResult, wantStructured bool) {
	cfg, err := s.configs.Get()
	if err != nil {
		return
	}

	schema, schemaConfig := formatter.SchemaForAssistant(cfg, result.Assistant, s.configs.BaseDir())
	if schemaConfig != nil && schemaConfig.Format == config.FormatJSON {
		parsed, err := formatter.ParseStructured(result.Result, schema)
		if err != nil {
			s.log.Warn("response not parseable as structured output",
				"request_id", requestID(ctx), "error", err)
			return
		}
		if ok, errs := formatter.Validate(parsed, schema); !ok {
			s.log.Warn("response validation errors",
				"request_id", requestID(ctx), "errors", formatter.ValidationSummary(errs))
		}
		response["structured"] = parsed
		return
	}

	if wantStructured {
		report, err := coordinator.ParseMarkdownReport(result.Result)
		if err != nil {
			s.log.Debug("result is not a structured report", "request_id", requestID(ctx), "error", err)
			return
		}
		response["structured"] = report
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := requestID(r.Context())

	req, status, errPayload := s.decodeInvestigateRequest(r)
	if errPayload != nil {
		writeJSON(w, status, errPayload)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	timeoutSeconds := req.TimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = s.settings.TimeoutSeconds
	}

	s.log.Info("starting streaming investigation",
		"request_id", id,
		"assistant", req.Assistant,
		"query_length", len(req.Query),
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(timeoutSeconds)*time.Second+timeoutGrace)
	defer cancel()

	emit := func(chunk runtime.Chunk) {
		data, err := json.Marshal(chunk)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
		flusher.Flush()
	}

	// Failures surface in-band as error chunks; the transport-level
	// error just ends the stream.
	if _, err := s.coord.InvestigateStream(ctx, coordinator.Request{
		Query:          req.Query,
		Assistant:      req.Assistant,
		TimeoutSeconds: req.TimeoutSeconds,
		MaxTurns:       req.MaxTurns,
		Variables:      req.Variables,
	}, emit); err != nil {
		s.log.Error("streaming investigation failed", "request_id", id, "error", err)
		return
	}

	fmt.Fprint(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
	s.log.Info("streaming investigation completed", "request_id", id)
}

// decodeInvestigateRequest parses and validates the request body. A
// non-nil payload means the request was rejected.
func (s *Server) decodeInvestigateRequest(r *http.Request) (investigateRequest, int, map[string]any) {
	var req investigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, http.StatusBadRequest, map[string]any{"error": "invalid request body"}
	}
	if req.Query == "" {
		return req, http.StatusBadRequest, map[string]any{"error": "query is required"}
	}

	if req.Assistant != "" {
		cfg, err := s.configs.Get()
		if err != nil {
			return req, http.StatusServiceUnavailable, map[string]any{"error": err.Error()}
		}
		if _, err := cfg.GetAssistant(req.Assistant); err != nil {
			return req, http.StatusNotFound, map[string]any{
				"error":     fmt.Sprintf("assistant '%s' not found", req.Assistant),
				"available": cfg.AssistantNames(),
			}
		}
	}
	return req, 0, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
