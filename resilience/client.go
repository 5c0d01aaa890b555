package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ClientConfig configures a resilient HTTP client.
type ClientConfig struct {
	// Name identifies the upstream for the circuit breaker.
	Name string

	// Timeout bounds each individual attempt.
	// Default: 5 seconds
	Timeout time.Duration

	// Retry configures retries of transient failures.
	Retry RetryConfig

	// CircuitBreaker configures the breaker. The Name defaults to the
	// client name.
	CircuitBreaker CircuitBreakerConfig

	// Transport is the underlying round tripper.
	// Default: http.DefaultTransport
	Transport http.RoundTripper
}

// DefaultClientConfig returns the default configuration for name.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:           name,
		Timeout:        5 * time.Second,
		Retry:          DefaultRetryConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(name),
	}
}

// Client is an HTTP client that retries transient failures with exponential
// backoff behind a circuit breaker. Network errors and 5xx responses count as
// failures; 4xx responses are returned to the caller as-is.
//
// Client is safe for concurrent use.
type Client struct {
	config  ClientConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient creates a resilient client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CircuitBreaker.Name == "" {
		cfg.CircuitBreaker.Name = cfg.Name
	}
	cfg.Retry = cfg.Retry.withDefaults()

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		breaker: NewCircuitBreaker[*http.Response](cfg.CircuitBreaker), //nolint:bodyclose // type parameter
	}
}

// Do sends req. Requests with a body must set GetBody to be retried. On
// success the caller must close the response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var resp *http.Response

	err := Retry(ctx, c.config.Retry, func() error {
		attempt, err := c.attempt(ctx, req)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return Permanent(fmt.Errorf("%w: %s", ErrCircuitOpen, c.config.Name))
			}
			return err
		}
		resp = attempt
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("%s: %w", c.config.Name, ctxErr)
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		clone := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, Permanent(err)
			}
			clone.Body = body
		}

		resp, err := c.http.Do(clone)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
			_ = resp.Body.Close()
			return nil, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.config.Name
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the circuit breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// ServerError reports a 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
