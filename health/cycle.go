package health

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/jonwraymond/healthops/observe"
)

// runCycle performs one refresh: read the selection, probe, classify,
// aggregate, swap the snapshot in and announce a status change. Probe
// failures degrade their component only. The only error is ErrEngineClosed
// when the engine shuts down mid-cycle, in which case nothing is published.
func (e *Engine) runCycle(ctx context.Context, trigger string) (HealthSnapshot, error) {
	start := time.Now()
	ctx, span := e.tel.Tracer.StartCycle(ctx, trigger)

	sel := e.selection.Get(ctx)
	names := Components()
	prev, hasPrev := e.snapshots.load()

	gaugeCh := make(chan map[string]float64, 1)
	go func() {
		gaugeCh <- e.readGauges(ctx, prev.Gauges)
	}()
	results := e.collector.collect(ctx, names, sel)
	gauges := <-gaugeCh

	if ctx.Err() != nil {
		e.tel.Tracer.EndSpan(span, ErrEngineClosed)
		return HealthSnapshot{}, ErrEngineClosed
	}

	at := e.cfg.Clock()
	if hasPrev && at.Before(prev.LastUpdated) {
		at = prev.LastUpdated
	}

	components := make([]ComponentStatus, len(names))
	failures := 0
	for i, name := range names {
		r := results[i]
		if r.err != nil {
			failures++
			components[i] = failedStatus(name, r.err, at)
			e.tel.Logger.Warn(ctx, "probe failed",
				observe.String("component", name),
				observe.Duration("duration", r.duration),
				observe.Err(r.err))
			continue
		}
		components[i] = newComponentStatus(e.registry, r.reading, at)
	}

	snap := HealthSnapshot{
		OverallStatus: Aggregate(components),
		Components:    components,
		Gauges:        gauges,
		LastUpdated:   at,
	}
	e.snapshots.store(snap)
	e.cycles.Add(1)

	previous := StatusHealthy
	if hasPrev {
		previous = prev.OverallStatus
	}
	if ev, changed := DetectChange(previous, snap.OverallStatus, at); changed {
		e.tel.Metrics.RecordStatusChange(ctx, ev.Previous.String(), ev.Current.String())
		e.tel.Logger.Info(ctx, "overall status changed",
			observe.String("previous", ev.Previous.String()),
			observe.String("current", ev.Current.String()))
		e.events.Publish(ctx, ev)
	}

	duration := time.Since(start)
	e.tel.Metrics.RecordCycle(ctx, observe.CycleRecord{
		Duration: duration,
		Trigger:  trigger,
		Overall:  snap.OverallStatus.String(),
		Severity: int64(snap.OverallStatus),
		Failures: failures,
	})
	e.tel.Logger.Debug(ctx, "health cycle completed",
		observe.String("trigger", trigger),
		observe.String("overall", snap.OverallStatus.String()),
		observe.Int("failures", failures),
		observe.Duration("duration", duration))
	e.tel.Tracer.EndSpan(span, nil)

	return snap, nil
}

// readGauges returns fresh gauges, or a copy of prev when the source fails
// or does not answer within the probe timeout. Non-finite values are dropped.
func (e *Engine) readGauges(ctx context.Context, prev map[string]float64) map[string]float64 {
	if e.gauges == nil {
		return map[string]float64{}
	}

	gctx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	// Buffered so an abandoned source can still deliver and exit.
	resultCh := make(chan gaugeResult, 1)
	go func() {
		gauges, err := safeGauges(gctx, e.gauges)
		resultCh <- gaugeResult{gauges: gauges, err: err}
	}()

	var result gaugeResult
	select {
	case result = <-resultCh:
	case <-gctx.Done():
		err := gctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrGaugeTimeout, e.cfg.ProbeTimeout)
		}
		result = gaugeResult{err: err}
	}

	if result.err != nil {
		e.tel.Logger.Warn(ctx, "gauge read failed, keeping previous values", observe.Err(result.err))
		if prev == nil {
			return map[string]float64{}
		}
		return maps.Clone(prev)
	}

	out := make(map[string]float64, len(result.gauges))
	for k, v := range result.gauges {
		if !finite(v) {
			e.tel.Logger.Warn(ctx, "dropping non-finite gauge", observe.String("gauge", k))
			continue
		}
		out[k] = v
	}
	return out
}

type gaugeResult struct {
	gauges map[string]float64
	err    error
}

func safeGauges(ctx context.Context, src GaugeSource) (gauges map[string]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			gauges, err = nil, fmt.Errorf("%w: %v", ErrGaugePanic, r)
		}
	}()
	return src.Gauges(ctx)
}
