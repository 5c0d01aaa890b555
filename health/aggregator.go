package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/selection"
)

// Aggregate computes the overall status of a set of components.
// Returns StatusCritical if any component is critical.
// Returns StatusWarning if any component is warning but none are critical.
// Returns StatusHealthy otherwise, including for an empty slice.
func Aggregate(components []ComponentStatus) Status {
	overall := StatusHealthy
	for _, c := range components {
		overall = Worse(overall, c.Status)
		if overall == StatusCritical {
			break
		}
	}
	return overall
}

// probeResult is the outcome of one probe call within a cycle.
type probeResult struct {
	reading  ComponentReading
	err      error
	duration time.Duration
}

// collector fans a cycle out to every probe and joins the results.
type collector struct {
	probes    map[string]Probe
	timeout   time.Duration
	telemetry observe.Telemetry
}

// collect runs the probe for each name in parallel. results[i] belongs to
// names[i]. A slow probe holds up only its own slot, up to the timeout.
func (c *collector) collect(ctx context.Context, names []string, sel selection.Selection) []probeResult {
	results := make([]probeResult, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = c.run(ctx, name, sel)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *collector) run(ctx context.Context, name string, sel selection.Selection) probeResult {
	probe, ok := c.probes[name]
	if !ok {
		return probeResult{err: fmt.Errorf("%w: %s", ErrProbeMissing, name)}
	}

	ctx, span := c.telemetry.Tracer.StartProbe(ctx, name)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	// Buffered so an abandoned probe can still deliver and exit.
	resultCh := make(chan probeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- probeResult{err: fmt.Errorf("%w: %v", ErrProbePanic, r)}
			}
		}()
		reading, err := probe.Probe(ctx, sel)
		resultCh <- probeResult{reading: reading, err: err}
	}()

	var result probeResult
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrProbeTimeout, c.timeout)
		}
		result = probeResult{err: err}
	}

	if result.err == nil {
		result.err = result.reading.Validate()
	}
	result.reading.Name = name
	if result.reading.Timestamp.IsZero() {
		result.reading.Timestamp = start
	}
	result.duration = time.Since(start)

	c.telemetry.Metrics.RecordProbe(ctx, name, result.duration, result.err)
	c.telemetry.Tracer.EndSpan(span, result.err)
	return result
}
