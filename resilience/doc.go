// Package resilience provides the resilient HTTP client used by the probe
// adapters.
//
// A Client retries transient failures (network errors and 5xx responses) with
// exponential backoff from github.com/cenkalti/backoff/v4, behind a circuit
// breaker from github.com/sony/gobreaker/v2. When the breaker is open, calls
// fail fast with ErrCircuitOpen so a dead upstream costs a cycle nothing.
//
// # Usage
//
//	client := resilience.NewClient(resilience.DefaultClientConfig("database"))
//
//	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
//	resp, err := client.Do(req)
//	if errors.Is(err, resilience.ErrCircuitOpen) {
//	    // upstream is known to be down
//	}
//
// Retry can also be used on its own:
//
//	err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
//	    return publish(ctx)
//	})
package resilience
