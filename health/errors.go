package health

import "errors"

var (
	// ErrProbeTimeout indicates a probe did not answer within its timeout.
	ErrProbeTimeout = errors.New("health: probe timeout")

	// ErrProbePanic indicates a probe panicked.
	ErrProbePanic = errors.New("health: probe panicked")

	// ErrGaugeTimeout indicates the gauge source did not answer within the
	// probe timeout.
	ErrGaugeTimeout = errors.New("health: gauge timeout")

	// ErrGaugePanic indicates the gauge source panicked.
	ErrGaugePanic = errors.New("health: gauge source panicked")

	// ErrProbeMissing indicates no probe is registered for a known component.
	ErrProbeMissing = errors.New("health: no probe registered")

	// ErrInvalidReading indicates a probe returned values that cannot be
	// classified.
	ErrInvalidReading = errors.New("health: invalid reading")

	// ErrUnknownStatus indicates a status name or value is not defined.
	ErrUnknownStatus = errors.New("health: unknown status")

	// ErrInvalidBand indicates a threshold band is malformed.
	ErrInvalidBand = errors.New("health: invalid threshold band")

	// ErrDuplicateBand indicates a metric was given more than one band.
	ErrDuplicateBand = errors.New("health: duplicate threshold band")

	// ErrEngineClosed indicates the engine has been closed.
	ErrEngineClosed = errors.New("health: engine closed")

	// ErrNotInitialized indicates no snapshot has been produced yet.
	ErrNotInitialized = errors.New("health: engine not initialized")

	// ErrNilSelectionStore indicates the engine was built without a
	// selection store.
	ErrNilSelectionStore = errors.New("health: nil selection store")
)
