package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/selection"
)

// Trigger names recorded on cycles.
const (
	TriggerInit     = "init"
	TriggerInterval = "interval"
	TriggerManual   = "manual"
)

// EngineConfig configures the engine.
type EngineConfig struct {
	// Interval is the time between scheduled cycles.
	// Default: 30 seconds
	Interval time.Duration

	// ProbeTimeout bounds each probe call within a cycle.
	// Default: 10 seconds
	ProbeTimeout time.Duration

	// HistorySize is the number of snapshots kept for trend display.
	// Zero keeps the default; a negative value disables history.
	// Default: 120
	HistorySize int

	// SubscriberBuffer is the default buffer of Subscribe channels.
	// Default: 16
	SubscriberBuffer int

	// Clock returns the current time.
	// Default: time.Now
	Clock func() time.Time
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Interval:         30 * time.Second,
		ProbeTimeout:     10 * time.Second,
		HistorySize:      120,
		SubscriberBuffer: 16,
		Clock:            time.Now,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	def := DefaultEngineConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = def.ProbeTimeout
	}
	switch {
	case c.HistorySize == 0:
		c.HistorySize = def.HistorySize
	case c.HistorySize < 0:
		c.HistorySize = 0
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = def.SubscriberBuffer
	}
	if c.Clock == nil {
		c.Clock = def.Clock
	}
	return c
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration.
func WithConfig(cfg EngineConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithRegistry sets the threshold registry. The default registry is used
// otherwise.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithProbes registers probes by their Name. A later probe replaces an
// earlier one for the same component.
func WithProbes(probes ...Probe) Option {
	return func(e *Engine) {
		for _, p := range probes {
			if p != nil {
				e.probes[p.Name()] = p
			}
		}
	}
}

// WithGaugeSource sets the source of system gauges.
func WithGaugeSource(src GaugeSource) Option {
	return func(e *Engine) { e.gauges = src }
}

// WithTelemetry sets the tracer, metrics and logger.
func WithTelemetry(tel observe.Telemetry) Option {
	return func(e *Engine) { e.tel = tel.WithDefaults() }
}

// WithSinks registers event sinks.
func WithSinks(sinks ...EventSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sinks...) }
}

// flight is one requested cycle and everyone waiting on it.
type flight struct {
	trigger string
	done    chan struct{}
	snap    HealthSnapshot
	err     error
}

func newFlight(trigger string) *flight {
	return &flight{trigger: trigger, done: make(chan struct{})}
}

// Engine samples the probes, classifies and aggregates their readings,
// publishes snapshots and announces overall status changes.
//
// At most one cycle runs at a time. Requests made while a cycle runs collapse
// into a single follow-up cycle.
type Engine struct {
	cfg       EngineConfig
	registry  *Registry
	probes    map[string]Probe
	gauges    GaugeSource
	selection selection.Store
	tel       observe.Telemetry
	sinks     []EventSink

	collector *collector
	snapshots *snapshotStore
	events    *Broadcaster

	lifetime context.Context
	stop     context.CancelFunc

	mu      sync.Mutex
	running bool
	next    *flight
	closed  bool
	started bool

	wg        sync.WaitGroup
	closeOnce sync.Once
	cycles    atomic.Uint64
}

// NewEngine creates an engine reading the selection from sel.
func NewEngine(sel selection.Store, opts ...Option) (*Engine, error) {
	if sel == nil {
		return nil, ErrNilSelectionStore
	}

	e := &Engine{
		cfg:       DefaultEngineConfig(),
		registry:  DefaultRegistry(),
		probes:    make(map[string]Probe),
		selection: sel,
		tel:       observe.NopTelemetry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cfg = e.cfg.withDefaults()

	e.collector = &collector{
		probes:    e.probes,
		timeout:   e.cfg.ProbeTimeout,
		telemetry: e.tel,
	}
	e.snapshots = newSnapshotStore(e.cfg.HistorySize)
	e.events = NewBroadcaster(e.tel, e.sinks...)
	e.lifetime, e.stop = context.WithCancel(context.Background())

	for _, name := range Components() {
		if _, ok := e.probes[name]; !ok {
			e.tel.Logger.Warn(e.lifetime, "no probe registered, component will report critical",
				observe.String("component", name))
		}
	}

	return e, nil
}

// selectionLoader is implemented by selection stores with a persistent
// backing.
type selectionLoader interface {
	Load(ctx context.Context) error
}

// Init loads the persisted selection and runs the first cycle. A selection
// load failure is logged and the in-memory selection is used.
func (e *Engine) Init(ctx context.Context) (HealthSnapshot, error) {
	if loader, ok := e.selection.(selectionLoader); ok {
		if err := loader.Load(ctx); err != nil {
			e.tel.Logger.Warn(ctx, "using in-memory selection", observe.Err(err))
		}
	}
	return e.refresh(ctx, TriggerInit)
}

// Start runs scheduled cycles every Interval until ctx is done or the engine
// is closed. It does not run a cycle immediately; call Init first.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.wg.Add(1)
	e.mu.Unlock()

	go e.schedule(ctx)
	return nil
}

func (e *Engine) schedule(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.tel.Logger.Info(ctx, "health scheduler started",
		observe.Duration("interval", e.cfg.Interval))

	for {
		select {
		case <-ticker.C:
			if _, err := e.request(TriggerInterval); err != nil {
				return
			}
		case <-ctx.Done():
			return
		case <-e.lifetime.Done():
			return
		}
	}
}

// Refresh requests a cycle and waits for its snapshot. If a cycle is already
// running, Refresh waits for the single follow-up cycle instead of starting an
// overlapping one. Cancelling ctx stops the wait, not the cycle.
func (e *Engine) Refresh(ctx context.Context) (HealthSnapshot, error) {
	return e.refresh(ctx, TriggerManual)
}

func (e *Engine) refresh(ctx context.Context, trigger string) (HealthSnapshot, error) {
	f, err := e.request(trigger)
	if err != nil {
		return HealthSnapshot{}, err
	}

	select {
	case <-f.done:
		if f.err != nil {
			return HealthSnapshot{}, f.err
		}
		return f.snap.clone(), nil
	case <-ctx.Done():
		return HealthSnapshot{}, ctx.Err()
	}
}

// Trigger requests a cycle without waiting for it.
func (e *Engine) Trigger() error {
	_, err := e.request(TriggerManual)
	return err
}

// request starts a cycle if none is running, or joins the pending follow-up.
func (e *Engine) request(trigger string) (*flight, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}

	if !e.running {
		f := newFlight(trigger)
		e.running = true
		e.wg.Add(1)
		go e.drive(f)
		return f, nil
	}

	if e.next == nil {
		e.next = newFlight(trigger)
	}
	return e.next, nil
}

// drive runs f and then any follow-up queued meanwhile. It is the only
// writer of the snapshot store.
func (e *Engine) drive(f *flight) {
	defer e.wg.Done()

	for f != nil {
		if e.lifetime.Err() != nil {
			f.err = ErrEngineClosed
		} else {
			f.snap, f.err = e.runCycle(e.lifetime, f.trigger)
		}
		close(f.done)

		e.mu.Lock()
		f, e.next = e.next, nil
		if f == nil {
			e.running = false
		}
		e.mu.Unlock()
	}
}

// Snapshot returns the latest completed snapshot. It reports false until the
// first cycle completes.
func (e *Engine) Snapshot() (HealthSnapshot, bool) {
	snap, ok := e.snapshots.load()
	if !ok {
		return HealthSnapshot{}, false
	}
	return snap.clone(), true
}

// History returns recent snapshots, oldest first.
func (e *Engine) History() []HealthSnapshot {
	return e.snapshots.recent()
}

// Subscribe registers for status change events. A buffer of zero uses the
// configured default.
func (e *Engine) Subscribe(buffer int) (<-chan StatusChangeEvent, func()) {
	if buffer <= 0 {
		buffer = e.cfg.SubscriberBuffer
	}
	return e.events.Subscribe(buffer)
}

// Events returns the engine's broadcaster.
func (e *Engine) Events() *Broadcaster {
	return e.events
}

// Selection returns the current endpoint selection.
func (e *Engine) Selection(ctx context.Context) selection.Selection {
	return e.selection.Get(ctx)
}

// SetSelection replaces the endpoint selection. It does not run a cycle; the
// new selection applies from the next one. A returned error reports only that
// persistence failed.
func (e *Engine) SetSelection(ctx context.Context, sel selection.Selection) error {
	err := e.selection.Set(ctx, sel)
	e.tel.Logger.Info(ctx, "selection updated",
		observe.String("selection", sel.String()),
		observe.Bool("persisted", err == nil))
	return err
}

// Thresholds returns the immutable threshold registry.
func (e *Engine) Thresholds() *Registry {
	return e.registry
}

// Cycles returns the number of completed cycles.
func (e *Engine) Cycles() uint64 {
	return e.cycles.Load()
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Close stops the scheduler, waits for a running cycle and closes every
// subscriber channel. Close is idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		e.stop()
		e.wg.Wait()
		e.events.Close()
	})
	return nil
}
