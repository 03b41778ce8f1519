// Package observability wires OpenTelemetry tracing and Prometheus
// metrics for the shoot service. Everything degrades to no-ops when
// disabled, so callers never branch on configuration.
package observability

import "fmt"

const defaultServiceName = "shoot"

// Config configures tracing and metrics.
type Config struct {
	Tracing TracingConfig `yaml:"tracing,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	// Enabled turns on trace export. Off means a noop tracer provider.
	Enabled bool `yaml:"enabled,omitempty"`

	// Endpoint is the OTLP gRPC collector endpoint, host:port.
	Endpoint string `yaml:"endpoint,omitempty"`

	// SamplingRate is the fraction of traces sampled, 0.0 to 1.0.
	SamplingRate float64 `yaml:"sampling_rate,omitempty"`

	// ServiceName identifies this service in traces.
	ServiceName string `yaml:"service_name,omitempty"`
}

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 1.0
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaultServiceName
	}
}

// Validate checks config consistency.
func (c *Config) Validate() error {
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing enabled but no endpoint configured")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("sampling rate %v out of range [0, 1]", c.Tracing.SamplingRate)
	}
	return nil
}
