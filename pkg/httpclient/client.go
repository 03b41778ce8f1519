// Package httpclient is the retrying HTTP transport for remote MCP
// endpoints. Rate-limit responses back off for as long as the server
// asks via Retry-After; transient server errors get a couple of quick
// retries; everything else surfaces immediately.
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// quickRetryLimit caps retries for transient server errors.
const quickRetryLimit = 2

// RetryStrategy classifies a response status for the retry loop.
type RetryStrategy int

const (
	// NoRetry surfaces the response immediately.
	NoRetry RetryStrategy = iota

	// QuickRetry allows up to quickRetryLimit short fixed-delay
	// retries, for transient server errors.
	QuickRetry

	// BackoffRetry waits for the server-requested delay, falling back
	// to exponential backoff, for rate limits and overload.
	BackoffRetry
)

// RetryInfo carries the retry hints a HeaderParser extracted from a
// throttled response.
type RetryInfo struct {
	// RetryAfter is the server-requested wait, zero when absent.
	RetryAfter time.Duration

	// ResetAt is when the server expects capacity back, zero when
	// absent.
	ResetAt time.Time
}

// HeaderParser extracts retry hints from response headers.
type HeaderParser func(http.Header) RetryInfo

// RetryStrategyFunc maps a response status code to a strategy.
type RetryStrategyFunc func(statusCode int) RetryStrategy

// Client wraps an http.Client with the retry loop.
type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	headerParser HeaderParser
	strategyFunc RetryStrategyFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

// WithMaxRetries bounds the number of retries after the first attempt.
func WithMaxRetries(max int) Option {
	return func(c *Client) { c.maxRetries = max }
}

// WithBaseDelay sets the first backoff step for throttled responses
// that carry no Retry-After.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) { c.baseDelay = delay }
}

// WithHeaderParser substitutes the retry-hint extraction.
func WithHeaderParser(parser HeaderParser) Option {
	return func(c *Client) { c.headerParser = parser }
}

// WithRetryStrategy substitutes the status classification.
func WithRetryStrategy(strategyFunc RetryStrategyFunc) Option {
	return func(c *Client) { c.strategyFunc = strategyFunc }
}

// New builds a client. Defaults suit a remote MCP endpoint: standard
// Retry-After parsing, 5 retries, 2s base backoff.
func New(opts ...Option) *Client {
	c := &Client{
		client:       &http.Client{Timeout: 60 * time.Second},
		maxRetries:   5,
		baseDelay:    2 * time.Second,
		headerParser: ParseRetryAfterHeader,
		strategyFunc: DefaultRetryStrategy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultRetryStrategy treats throttling and overload as
// backoff-worthy, transient server errors as quick retries, and
// everything else as final.
func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable:
		return BackoffRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return QuickRetry
	default:
		return NoRetry
	}
}

// Do issues the request, retrying per the strategy. Requests with a
// body must have GetBody set so retries can resend it; http.NewRequest
// arranges that for the common body types. Waits respect the request
// context.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var (
		resp     *http.Response
		err      error
		attempts int
	)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		attempts = attempt + 1

		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("rewinding request body for retry: %w", bodyErr)
			}
			req.Body = body
		}

		var strategy RetryStrategy
		var info RetryInfo
		resp, strategy, info, err = c.attempt(req)
		if err == nil || strategy == NoRetry {
			return resp, err
		}

		delay := c.delay(strategy, attempt, info)
		if delay <= 0 || attempt == c.maxRetries {
			break
		}

		c.logRetry(strategy, delay, attempt, resp)
		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			return resp, req.Context().Err()
		}
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	return resp, &RetryError{StatusCode: status, Attempts: attempts, Err: err}
}

// attempt runs one request and classifies the outcome. Transport
// errors are never retried: the MCP JSON-RPC exchange is not known to
// be idempotent once bytes may have reached the server.
func (c *Client) attempt(req *http.Request) (*http.Response, RetryStrategy, RetryInfo, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NoRetry, RetryInfo{}, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, NoRetry, RetryInfo{}, nil
	}

	var info RetryInfo
	if c.headerParser != nil {
		info = c.headerParser(resp.Header)
	}
	return resp, c.strategyFunc(resp.StatusCode), info, fmt.Errorf("HTTP %d", resp.StatusCode)
}

// delay computes the wait before the next attempt; zero means stop
// retrying.
func (c *Client) delay(strategy RetryStrategy, attempt int, info RetryInfo) time.Duration {
	switch strategy {
	case BackoffRetry:
		if info.RetryAfter > 0 {
			return info.RetryAfter
		}
		if !info.ResetAt.IsZero() {
			if d := time.Until(info.ResetAt); d > 0 {
				return d
			}
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		return backoff + backoff/10
	case QuickRetry:
		if attempt >= quickRetryLimit {
			return 0
		}
		return time.Duration(2+attempt) * time.Second
	default:
		return 0
	}
}

func (c *Client) logRetry(strategy RetryStrategy, delay time.Duration, attempt int, resp *http.Response) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	switch strategy {
	case BackoffRetry:
		slog.Info("MCP endpoint throttled, backing off",
			"status", status, "delay", delay, "attempt", attempt+1)
	case QuickRetry:
		slog.Warn("MCP endpoint error, retrying",
			"status", status, "delay", delay, "attempt", attempt+1)
	}
}
