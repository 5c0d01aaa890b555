package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig configures the circuit breaker guarding one upstream.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and state callbacks.
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval clears the counts periodically while closed.
	// Default: 0 (never)
	Interval time.Duration

	// ResetTimeout is how long the breaker stays open before going half-open.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// MinRequests is the number of requests before the failure ratio counts.
	// Default: 5
	MinRequests uint32

	// FailureRatio trips the breaker once reached.
	// Default: 0.5
	FailureRatio float64

	// OnStateChange is called when the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the default configuration for name.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		ResetTimeout: 30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.5,
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	def := DefaultCircuitBreakerConfig(c.Name)
	if c.MaxRequests == 0 {
		c.MaxRequests = def.MaxRequests
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.MinRequests == 0 {
		c.MinRequests = def.MinRequests
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = def.FailureRatio
	}
	return c
}

// readyToTrip trips once MinRequests have been seen and the failure ratio is
// at least FailureRatio.
func (c CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// NewCircuitBreaker creates a gobreaker circuit breaker from cfg.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	cfg = cfg.withDefaults()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: cfg.readyToTrip,
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}
