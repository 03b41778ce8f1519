package coordinator

import (
	"fmt"
	"time"
)

// CollectorError reports an investigation that failed while running:
// provider failures, MCP connection failures, or an exhausted turn
// budget.
type CollectorError struct {
	Assistant string
	Err       error
}

func (e *CollectorError) Error() string {
	return fmt.Sprintf("investigation with assistant '%s' failed: %v", e.Assistant, e.Err)
}

func (e *CollectorError) Unwrap() error {
	return e.Err
}

// TimeoutError reports an investigation that exceeded its deadline.
type TimeoutError struct {
	Assistant string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("investigation with assistant '%s' timed out after %s", e.Assistant, e.Timeout)
}
