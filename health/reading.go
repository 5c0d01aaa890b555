package health

import (
	"fmt"
	"maps"
	"math"
	"time"
)

// Unavailable marks a numeric field the probe could not measure.
const Unavailable = -1.0

// ComponentReading is the raw output of a probe.
type ComponentReading struct {
	Name           string
	ResponseTimeMs float64
	UptimePercent  float64
	// Metrics holds component-specific values. Keys are not validated
	// against a schema; cpu and memory take part in classification.
	Metrics   map[string]float64
	Details   string
	Timestamp time.Time
}

// Validate reports why a reading cannot be classified. Sentinel values,
// non-finite numbers, negative response times and uptime outside [0,100] are
// rejected.
func (r ComponentReading) Validate() error {
	switch {
	case r.ResponseTimeMs == Unavailable:
		return fmt.Errorf("%w: response time unavailable", ErrInvalidReading)
	case r.UptimePercent == Unavailable:
		return fmt.Errorf("%w: uptime unavailable", ErrInvalidReading)
	case !finite(r.ResponseTimeMs) || r.ResponseTimeMs < 0:
		return fmt.Errorf("%w: response time %v", ErrInvalidReading, r.ResponseTimeMs)
	case !finite(r.UptimePercent) || r.UptimePercent < 0 || r.UptimePercent > 100:
		return fmt.Errorf("%w: uptime %v", ErrInvalidReading, r.UptimePercent)
	}
	for k, v := range r.Metrics {
		if !finite(v) {
			return fmt.Errorf("%w: metric %q is %v", ErrInvalidReading, k, v)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ComponentStatus is the classified state of one component. Values are
// superseded by the next cycle, never mutated.
type ComponentStatus struct {
	Name           string             `json:"name"`
	Status         Status             `json:"status"`
	ResponseTimeMs float64            `json:"responseTime"`
	UptimePercent  float64            `json:"uptime"`
	Details        string             `json:"details"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	LastCheck      time.Time          `json:"lastCheck"`
}

// Failed reports whether the status was synthesized from a probe failure.
func (c ComponentStatus) Failed() bool {
	return c.ResponseTimeMs == Unavailable && c.UptimePercent == Unavailable
}

func (c ComponentStatus) clone() ComponentStatus {
	c.Metrics = maps.Clone(c.Metrics)
	return c
}

// newComponentStatus classifies a reading. The metrics map is copied.
func newComponentStatus(reg *Registry, rd ComponentReading, at time.Time) ComponentStatus {
	return ComponentStatus{
		Name:           rd.Name,
		Status:         reg.classifyReading(rd),
		ResponseTimeMs: rd.ResponseTimeMs,
		UptimePercent:  rd.UptimePercent,
		Details:        rd.Details,
		Metrics:        maps.Clone(rd.Metrics),
		LastCheck:      at,
	}
}

// failedStatus builds the critical status reported for a failed probe.
func failedStatus(name string, err error, at time.Time) ComponentStatus {
	return ComponentStatus{
		Name:           name,
		Status:         StatusCritical,
		ResponseTimeMs: Unavailable,
		UptimePercent:  Unavailable,
		Details:        fmt.Sprintf("probe failed: %v", err),
		LastCheck:      at,
	}
}
