package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics creates the Prometheus-backed metrics recorder. The
// exporter registers with the default Prometheus registry, so the
// /metrics endpoint serves everything through promhttp.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("shoot")

	investigationDuration, err := meter.Float64Histogram(
		"shoot_investigation_duration_seconds",
		metric.WithDescription("Investigation duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create investigation duration histogram: %w", err)
	}

	investigations, err := meter.Int64Counter(
		"shoot_investigations_total",
		metric.WithDescription("Total investigations started"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create investigations counter: %w", err)
	}

	investigationErrors, err := meter.Int64Counter(
		"shoot_investigation_errors_total",
		metric.WithDescription("Total failed investigations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create investigation errors counter: %w", err)
	}

	delegations, err := meter.Int64Counter(
		"shoot_delegations_total",
		metric.WithDescription("Total Task delegations to collector subagents"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delegations counter: %w", err)
	}

	toolDuration, err := meter.Float64Histogram(
		"shoot_tool_execution_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}

	toolCalls, err := meter.Int64Counter(
		"shoot_tool_calls_total",
		metric.WithDescription("Total MCP tool calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	toolErrors, err := meter.Int64Counter(
		"shoot_tool_errors_total",
		metric.WithDescription("Total failed MCP tool calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool errors counter: %w", err)
	}

	inputTokens, err := meter.Int64Counter(
		"shoot_llm_tokens_input_total",
		metric.WithDescription("Total input tokens sent to the model"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tokens counter: %w", err)
	}

	outputTokens, err := meter.Int64Counter(
		"shoot_llm_tokens_output_total",
		metric.WithDescription("Total output tokens from the model"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tokens counter: %w", err)
	}

	httpRequests, err := meter.Int64Counter(
		"shoot_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	httpDuration, err := meter.Float64Histogram(
		"shoot_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	return &PrometheusMetrics{
		investigationDuration: investigationDuration,
		investigationsTotal:   investigations,
		investigationErrors:   investigationErrors,
		delegationsTotal:      delegations,
		toolDuration:          toolDuration,
		toolCallsTotal:        toolCalls,
		toolErrorsTotal:       toolErrors,
		inputTokensTotal:      inputTokens,
		outputTokensTotal:     outputTokens,
		httpRequestsTotal:     httpRequests,
		httpDuration:          httpDuration,
	}, nil
}
