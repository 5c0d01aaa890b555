// Package observe provides the telemetry primitives used by the health engine.
//
// It bundles three concerns behind small interfaces:
//
//   - Logger: context-aware structured logging backed by zap. Entries carry
//     the trace and span IDs of the active OpenTelemetry span.
//   - Tracer: one span per refresh cycle and one child span per probe call.
//   - Metrics: cycle counters and durations, probe failures, status changes
//     and an observable gauge of the current overall status.
//
// An Observer wires the OpenTelemetry tracer and meter providers using the
// exporters package. Telemetry is the bundle the engine consumes; NopTelemetry
// is safe to use in tests and in embedders that do not care about telemetry.
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "healthd",
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	})
//	tel, err := observe.TelemetryFromObserver(obs)
package observe
