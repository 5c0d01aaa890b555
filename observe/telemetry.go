package observe

// Telemetry bundles the tracer, metrics and logger the engine reports to.
// The zero value is not usable; build one with TelemetryFromObserver or
// NopTelemetry.
type Telemetry struct {
	Tracer  Tracer
	Metrics Metrics
	Logger  Logger
}

// TelemetryFromObserver builds Telemetry from an Observer.
func TelemetryFromObserver(obs Observer) (Telemetry, error) {
	if obs == nil {
		return Telemetry{}, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return Telemetry{}, err
	}

	return Telemetry{
		Tracer:  NewTracer(obs.Tracer()),
		Metrics: metrics,
		Logger:  obs.Logger(),
	}, nil
}

// NopTelemetry returns telemetry that records nothing.
func NopTelemetry() Telemetry {
	return Telemetry{
		Tracer:  NewTracer(nil),
		Metrics: noopMetrics{},
		Logger:  NopLogger(),
	}
}

// WithDefaults fills any nil member with its no-op counterpart.
func (t Telemetry) WithDefaults() Telemetry {
	if t.Tracer == nil {
		t.Tracer = NewTracer(nil)
	}
	if t.Metrics == nil {
		t.Metrics = noopMetrics{}
	}
	if t.Logger == nil {
		t.Logger = NopLogger()
	}
	return t
}
