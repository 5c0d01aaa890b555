// Package health implements the health aggregation and threshold-evaluation
// engine.
//
// An Engine periodically samples a fixed set of component probes (Database,
// API Server, External Services and Message Queue), classifies each reading
// against a threshold Registry, rolls the component statuses into one overall
// status and publishes the result as an immutable HealthSnapshot. When the
// overall status changes, a StatusChangeEvent is broadcast to subscribers.
//
// # Core Concepts
//
// Status is ordered by severity: healthy < warning < critical. A Band maps one
// metric to a status; AtMost bands (responseTime, cpu, memory) get worse as the
// value grows and AtLeast bands (uptime) get worse as it shrinks. Boundary
// values belong to the better band.
//
// A Probe returns a raw ComponentReading. A probe that errors, panics, times
// out or returns values that cannot be classified degrades its own component to
// critical; the rest of the cycle is unaffected.
//
// # Basic Usage
//
//	sel := selection.NewPersistentStore(kv.NewMemoryStore())
//	engine, err := health.NewEngine(sel,
//	    health.WithProbes(dbProbe, apiProbe, extProbe, mqProbe),
//	)
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	if _, err := engine.Init(ctx); err != nil {
//	    return err
//	}
//	_ = engine.Start(ctx)
//
//	snap, _ := engine.Snapshot()
//	fmt.Println(snap.OverallStatus)
//
// # Refresh Semantics
//
// At most one cycle runs at a time. Refresh and Trigger requests issued while
// a cycle runs collapse into a single follow-up cycle, and every waiter
// receives that cycle's snapshot. Cancelling a Refresh context abandons the
// wait but never the cycle.
//
// # Events
//
// Subscribe returns a buffered channel. Publishing never blocks: a subscriber
// whose buffer is full misses the event. Events are hints for the UI and the
// notification inbox, not a durable log.
package health
