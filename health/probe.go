package health

import (
	"context"

	"github.com/jonwraymond/healthops/selection"
)

// Known component names, in snapshot order.
const (
	ComponentDatabase         = "Database"
	ComponentAPIServer        = "API Server"
	ComponentExternalServices = "External Services"
	ComponentMessageQueue     = "Message Queue"
)

// Components returns the fixed component set in snapshot order.
func Components() []string {
	return []string{
		ComponentDatabase,
		ComponentAPIServer,
		ComponentExternalServices,
		ComponentMessageQueue,
	}
}

// Probe reports the raw health of one subsystem.
//
// Contract:
// - Concurrency: Probe may be called from a new goroutine each cycle.
// - Context: implementations must honor cancellation; the engine abandons a
//   probe once its timeout expires.
// - Errors: a non-nil error marks the component critical for this cycle.
// - The selection is only meaningful to the External Services probe; others
//   ignore it.
type Probe interface {
	// Name returns the component the probe reports on.
	Name() string

	// Probe fetches one reading.
	Probe(ctx context.Context, sel selection.Selection) (ComponentReading, error)
}

// ProbeFunc adapts an ordinary function into a Probe.
type ProbeFunc struct {
	name string
	fn   func(context.Context, selection.Selection) (ComponentReading, error)
}

// NewProbeFunc creates a Probe named name backed by fn.
func NewProbeFunc(name string, fn func(context.Context, selection.Selection) (ComponentReading, error)) *ProbeFunc {
	return &ProbeFunc{name: name, fn: fn}
}

// Name returns the component name.
func (f *ProbeFunc) Name() string {
	return f.name
}

// Probe calls the wrapped function.
func (f *ProbeFunc) Probe(ctx context.Context, sel selection.Selection) (ComponentReading, error) {
	return f.fn(ctx, sel)
}

// Gauge keys reported by a GaugeSource.
const (
	GaugeCPU     = "cpu"
	GaugeMemory  = "memory"
	GaugeDisk    = "disk"
	GaugeNetwork = "network"
)

// GaugeSource reports system-wide utilization percentages.
type GaugeSource interface {
	Gauges(ctx context.Context) (map[string]float64, error)
}

// GaugeFunc adapts a function into a GaugeSource.
type GaugeFunc func(ctx context.Context) (map[string]float64, error)

// Gauges calls f.
func (f GaugeFunc) Gauges(ctx context.Context) (map[string]float64, error) {
	return f(ctx)
}
