package httpclient

import (
	"fmt"
	"time"
)

// RetryError reports a request that kept failing after every allowed
// attempt. StatusCode is the last response's status, zero when the
// failure was a transport error.
type RetryError struct {
	StatusCode int
	Attempts   int
	RetryAfter time.Duration
	Err        error
}

func (e *RetryError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d after %d attempts (retry after %v)", e.StatusCode, e.Attempts, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d after %d attempts", e.StatusCode, e.Attempts)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}
