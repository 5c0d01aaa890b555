package observe

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CycleRecord describes one completed refresh cycle.
type CycleRecord struct {
	Duration time.Duration
	Trigger  string // "interval", "manual" or "init"
	Overall  string
	Severity int64 // 0 healthy, 1 warning, 2 critical
	Failures int   // probes that failed or returned invalid readings
}

// Metrics records health engine metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordCycle(ctx context.Context, rec CycleRecord)
	RecordProbe(ctx context.Context, component string, duration time.Duration, err error)
	RecordStatusChange(ctx context.Context, from, to string)
	RecordDroppedEvent(ctx context.Context)
}

type metricsImpl struct {
	cycles       metric.Int64Counter
	cycleHist    metric.Float64Histogram
	probeHist    metric.Float64Histogram
	probeErrors  metric.Int64Counter
	changes      metric.Int64Counter
	dropped      metric.Int64Counter
	overall      atomic.Int64
	registration metric.Registration
}

// NewMetrics creates Metrics on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	var err error

	if m.cycles, err = meter.Int64Counter(
		"health.cycle.total",
		metric.WithDescription("Completed refresh cycles"),
		metric.WithUnit("{cycle}"),
	); err != nil {
		return nil, err
	}

	if m.cycleHist, err = meter.Float64Histogram(
		"health.cycle.duration_ms",
		metric.WithDescription("Refresh cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.probeHist, err = meter.Float64Histogram(
		"health.probe.duration_ms",
		metric.WithDescription("Probe call duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.probeErrors, err = meter.Int64Counter(
		"health.probe.failures",
		metric.WithDescription("Probe calls that failed or returned invalid readings"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, err
	}

	if m.changes, err = meter.Int64Counter(
		"health.status.changes",
		metric.WithDescription("Overall status transitions"),
		metric.WithUnit("{change}"),
	); err != nil {
		return nil, err
	}

	if m.dropped, err = meter.Int64Counter(
		"health.events.dropped",
		metric.WithDescription("Status change events dropped for slow subscribers"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}

	gauge, err := meter.Int64ObservableGauge(
		"health.overall.status",
		metric.WithDescription("Current overall status (0 healthy, 1 warning, 2 critical)"),
	)
	if err != nil {
		return nil, err
	}
	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, m.overall.Load())
		return nil
	}, gauge)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordCycle(ctx context.Context, rec CycleRecord) {
	opt := metric.WithAttributes(
		attribute.String("trigger", rec.Trigger),
		attribute.String("overall", rec.Overall),
	)
	m.cycles.Add(ctx, 1, opt)
	m.cycleHist.Record(ctx, float64(rec.Duration.Milliseconds()), opt)
	m.overall.Store(rec.Severity)
}

func (m *metricsImpl) RecordProbe(ctx context.Context, component string, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("component", component))
	m.probeHist.Record(ctx, float64(duration.Milliseconds()), opt)
	if err != nil {
		m.probeErrors.Add(ctx, 1, opt)
	}
}

func (m *metricsImpl) RecordStatusChange(ctx context.Context, from, to string) {
	m.changes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *metricsImpl) RecordDroppedEvent(ctx context.Context) {
	m.dropped.Add(ctx, 1)
}

type noopMetrics struct{}

func (noopMetrics) RecordCycle(context.Context, CycleRecord)                  {}
func (noopMetrics) RecordProbe(context.Context, string, time.Duration, error) {}
func (noopMetrics) RecordStatusChange(context.Context, string, string)        {}
func (noopMetrics) RecordDroppedEvent(context.Context)                        {}
