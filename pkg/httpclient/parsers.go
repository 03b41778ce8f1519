package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseRetryAfterHeader reads the standard Retry-After header, either
// delta-seconds or an HTTP-date, which is all a remote MCP endpoint
// sends.
func ParseRetryAfterHeader(headers http.Header) RetryInfo {
	v := headers.Get("Retry-After")
	if v == "" {
		return RetryInfo{}
	}

	if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
		return RetryInfo{RetryAfter: time.Duration(seconds) * time.Second}
	}
	if at, err := http.ParseTime(v); err == nil {
		return RetryInfo{ResetAt: at}
	}
	return RetryInfo{}
}
