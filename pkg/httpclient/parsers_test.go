package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRetryAfterHeader(t *testing.T) {
	httpDate := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)

	tests := []struct {
		name       string
		value      string
		retryAfter time.Duration
		wantReset  bool
	}{
		{name: "absent", value: ""},
		{name: "delta_seconds", value: "7", retryAfter: 7 * time.Second},
		{name: "zero_seconds", value: "0"},
		{name: "negative_ignored", value: "-5"},
		{name: "http_date", value: httpDate, wantReset: true},
		{name: "garbage_ignored", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			if tt.value != "" {
				headers.Set("Retry-After", tt.value)
			}

			info := ParseRetryAfterHeader(headers)
			if info.RetryAfter != tt.retryAfter {
				t.Errorf("RetryAfter = %v, want %v", info.RetryAfter, tt.retryAfter)
			}
			if tt.wantReset != !info.ResetAt.IsZero() {
				t.Errorf("ResetAt = %v, want set=%v", info.ResetAt, tt.wantReset)
			}
		})
	}
}
