package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopManagerIsUsable(t *testing.T) {
	m := NoopManager()

	tracer := m.GetTracer("test")
	require.NotNil(t, tracer)
	_, span := tracer.Start(context.Background(), "op")
	span.End()

	// Recording through an uninitialized manager must not panic.
	m.GetMetrics().RecordInvestigation(context.Background(), "investigator", time.Second, 10, 5, nil)
	m.GetMetrics().RecordToolExecution(context.Background(), "mcp__kubernetes-wc__pods_list", time.Millisecond, nil)
	m.GetMetrics().RecordDelegation(context.Background(), "wc-collector")
}

func TestZeroValueMetricsAreNoop(t *testing.T) {
	var m *PrometheusMetrics
	m.RecordInvestigation(context.Background(), "a", time.Second, 0, 0, nil)
	m.RecordHTTPRequest(context.Background(), "GET", "/health", 200, time.Millisecond)
}

func TestDisabledTracerIsNoop(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)
}

func TestConfigDefaultsAndValidation(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.Equal(t, 1.0, cfg.Tracing.SamplingRate)
	assert.Equal(t, "shoot", cfg.Tracing.ServiceName)
	assert.NoError(t, cfg.Validate())

	bad := Config{Tracing: TracingConfig{Enabled: true}}
	bad.SetDefaults()
	assert.Error(t, bad.Validate())

	oos := Config{Tracing: TracingConfig{SamplingRate: 1.5}}
	assert.Error(t, oos.Validate())
}

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	handler := HTTPMiddleware(NoopManager())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
