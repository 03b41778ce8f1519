package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics = (*PrometheusMetrics)(nil)
	metricsMu     sync.RWMutex
)

// Metrics records service-level measurements.
type Metrics interface {
	RecordInvestigation(ctx context.Context, assistant string, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordDelegation(ctx context.Context, subagent string)
	RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error)
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// PrometheusMetrics implements Metrics on OTel instruments backed by
// the Prometheus exporter. The zero value is a safe no-op.
type PrometheusMetrics struct {
	investigationDuration metric.Float64Histogram
	investigationsTotal   metric.Int64Counter
	investigationErrors   metric.Int64Counter
	delegationsTotal      metric.Int64Counter

	toolDuration    metric.Float64Histogram
	toolCallsTotal  metric.Int64Counter
	toolErrorsTotal metric.Int64Counter

	inputTokensTotal  metric.Int64Counter
	outputTokensTotal metric.Int64Counter

	httpRequestsTotal metric.Int64Counter
	httpDuration      metric.Float64Histogram
}

func (m *PrometheusMetrics) RecordInvestigation(ctx context.Context, assistant string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.investigationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("assistant", assistant))

	m.investigationDuration.Record(ctx, duration.Seconds(), attrs)
	m.investigationsTotal.Add(ctx, 1, attrs)
	if inputTokens > 0 {
		m.inputTokensTotal.Add(ctx, int64(inputTokens), attrs)
	}
	if outputTokens > 0 {
		m.outputTokensTotal.Add(ctx, int64(outputTokens), attrs)
	}
	if err != nil {
		m.investigationErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordDelegation(ctx context.Context, subagent string) {
	if m == nil || m.delegationsTotal == nil {
		return
	}
	m.delegationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("subagent", subagent)))
}

func (m *PrometheusMetrics) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil || m.toolCallsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("tool", tool))

	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	m.toolCallsTotal.Add(ctx, 1, attrs)
	if err != nil {
		m.toolErrorsTotal.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

// SetGlobalMetrics installs the process-wide metrics recorder.
func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

// GetGlobalMetrics returns the process-wide metrics recorder. Before
// initialization it returns a no-op recorder, so callers never check.
func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
