package health

import (
	"context"
	"runtime"
)

// RuntimeGaugesConfig configures the in-process gauge source.
type RuntimeGaugesConfig struct {
	// MaxAlloc is the allocation, in bytes, that counts as 100% memory.
	// If zero, the memory obtained from the OS is used.
	// Default: 0 (auto-detect)
	MaxAlloc uint64
}

// RuntimeGauges reports the memory gauge from Go runtime statistics. It is
// the fallback GaugeSource when no remote gauge endpoint is configured.
type RuntimeGauges struct {
	config RuntimeGaugesConfig
}

// NewRuntimeGauges creates a runtime gauge source.
func NewRuntimeGauges(config RuntimeGaugesConfig) *RuntimeGauges {
	return &RuntimeGauges{config: config}
}

// Gauges returns {"memory": percent}.
func (g *RuntimeGauges) Gauges(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	maxAlloc := g.config.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}
	if maxAlloc == 0 {
		return map[string]float64{}, nil
	}

	pct := float64(stats.Alloc) / float64(maxAlloc) * 100
	if pct > 100 {
		pct = 100
	}
	return map[string]float64{GaugeMemory: pct}, nil
}
