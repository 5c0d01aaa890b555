package health

import (
	"fmt"
	"math"
	"slices"
)

// MetricType names a classified metric.
type MetricType string

// Known metric types.
const (
	MetricResponseTime MetricType = "responseTime"
	MetricUptime       MetricType = "uptime"
	MetricCPU          MetricType = "cpu"
	MetricMemory       MetricType = "memory"
)

// Direction says which side of a bound is better.
type Direction int

const (
	// AtMost bands are healthy while the value stays at or below the bound.
	AtMost Direction = iota + 1
	// AtLeast bands are healthy while the value stays at or above the bound.
	AtLeast
)

func (d Direction) String() string {
	switch d {
	case AtMost:
		return "atMost"
	case AtLeast:
		return "atLeast"
	default:
		return "unknown"
	}
}

// MarshalText encodes the direction as its name.
func (d Direction) MarshalText() ([]byte, error) {
	if d != AtMost && d != AtLeast {
		return nil, fmt.Errorf("%w: direction %d", ErrInvalidBand, int(d))
	}
	return []byte(d.String()), nil
}

// Band is the threshold table for one metric. Values within Healthy are
// healthy, values within Warning are warning, and anything beyond Warning is
// critical. Bounds are inclusive on the better side.
type Band struct {
	Metric    MetricType `json:"metric"`
	Direction Direction  `json:"direction"`
	Healthy   float64    `json:"healthy"`
	Warning   float64    `json:"warning"`
	Unit      string     `json:"unit,omitempty"`
}

// Classify maps value onto the band. NaN is critical.
func (b Band) Classify(value float64) Status {
	if math.IsNaN(value) {
		return StatusCritical
	}
	switch b.Direction {
	case AtLeast:
		switch {
		case value >= b.Healthy:
			return StatusHealthy
		case value >= b.Warning:
			return StatusWarning
		default:
			return StatusCritical
		}
	default:
		switch {
		case value <= b.Healthy:
			return StatusHealthy
		case value <= b.Warning:
			return StatusWarning
		default:
			return StatusCritical
		}
	}
}

func (b Band) validate() error {
	if b.Metric == "" {
		return fmt.Errorf("%w: empty metric", ErrInvalidBand)
	}
	if math.IsNaN(b.Healthy) || math.IsNaN(b.Warning) {
		return fmt.Errorf("%w: %s has NaN bound", ErrInvalidBand, b.Metric)
	}
	switch b.Direction {
	case AtMost:
		if b.Warning < b.Healthy {
			return fmt.Errorf("%w: %s warning bound %.2f below healthy bound %.2f",
				ErrInvalidBand, b.Metric, b.Warning, b.Healthy)
		}
	case AtLeast:
		if b.Warning > b.Healthy {
			return fmt.Errorf("%w: %s warning bound %.2f above healthy bound %.2f",
				ErrInvalidBand, b.Metric, b.Warning, b.Healthy)
		}
	default:
		return fmt.Errorf("%w: %s has unknown direction", ErrInvalidBand, b.Metric)
	}
	return nil
}

// Registry is an immutable set of bands keyed by metric type.
// A Registry is safe for concurrent use.
type Registry struct {
	bands map[MetricType]Band
	order []MetricType
}

// NewRegistry validates bands and builds a registry. Each metric may appear
// once.
func NewRegistry(bands ...Band) (*Registry, error) {
	r := &Registry{
		bands: make(map[MetricType]Band, len(bands)),
		order: make([]MetricType, 0, len(bands)),
	}
	for _, b := range bands {
		if err := b.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.bands[b.Metric]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateBand, b.Metric)
		}
		r.bands[b.Metric] = b
		r.order = append(r.order, b.Metric)
	}
	return r, nil
}

// DefaultBands returns the stock threshold table.
func DefaultBands() []Band {
	return []Band{
		{Metric: MetricResponseTime, Direction: AtMost, Healthy: 100, Warning: 200, Unit: "ms"},
		{Metric: MetricUptime, Direction: AtLeast, Healthy: 99.0, Warning: 98.0, Unit: "%"},
		{Metric: MetricCPU, Direction: AtMost, Healthy: 70, Warning: 85, Unit: "%"},
		{Metric: MetricMemory, Direction: AtMost, Healthy: 75, Warning: 90, Unit: "%"},
	}
}

var defaultRegistry = mustRegistry(DefaultBands()...)

func mustRegistry(bands ...Band) *Registry {
	r, err := NewRegistry(bands...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the registry built from DefaultBands.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Classify classifies value using the default registry.
func Classify(metric MetricType, value float64) Status {
	return defaultRegistry.Classify(metric, value)
}

// Classify maps value to a status using the band for metric. A metric without
// a band is healthy.
func (r *Registry) Classify(metric MetricType, value float64) Status {
	b, ok := r.bands[metric]
	if !ok {
		if math.IsNaN(value) {
			return StatusCritical
		}
		return StatusHealthy
	}
	return b.Classify(value)
}

// Band returns the band for metric.
func (r *Registry) Band(metric MetricType) (Band, bool) {
	b, ok := r.bands[metric]
	return b, ok
}

// Bands returns every band in registration order. The slice is a copy.
func (r *Registry) Bands() []Band {
	out := make([]Band, 0, len(r.order))
	for _, m := range r.order {
		out = append(out, r.bands[m])
	}
	return out
}

// ClassifyGauges classifies each gauge that has a band. Gauges without a band
// are omitted.
func (r *Registry) ClassifyGauges(gauges map[string]float64) map[string]Status {
	out := make(map[string]Status, len(gauges))
	for key, v := range gauges {
		if _, ok := r.bands[MetricType(key)]; ok {
			out[key] = r.Classify(MetricType(key), v)
		}
	}
	return out
}

// componentMetrics lists metrics-map keys that feed a component's status.
var componentMetrics = []MetricType{MetricCPU, MetricMemory}

// classifyReading computes the status of a validated reading: the worst of
// its response time, uptime and any cpu/memory metric it carries.
func (r *Registry) classifyReading(rd ComponentReading) Status {
	status := Worse(
		r.Classify(MetricResponseTime, rd.ResponseTimeMs),
		r.Classify(MetricUptime, rd.UptimePercent),
	)
	for _, m := range componentMetrics {
		if v, ok := rd.Metrics[string(m)]; ok {
			status = Worse(status, r.Classify(m, v))
		}
	}
	return status
}

// Metrics returns the metric types in registration order.
func (r *Registry) Metrics() []MetricType {
	return slices.Clone(r.order)
}
