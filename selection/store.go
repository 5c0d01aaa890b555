package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jonwraymond/healthops/kv"
	"github.com/jonwraymond/healthops/observe"
)

// DefaultKey is the key the selection is persisted under.
const DefaultKey = "selection.external-services"

var (
	// ErrNotPersisted indicates Set applied the selection in memory but could
	// not write it to the backing store.
	ErrNotPersisted = errors.New("selection: not persisted")

	// ErrNotLoaded indicates Load could not read the backing store and kept
	// the in-memory value.
	ErrNotLoaded = errors.New("selection: not loaded")
)

// Store gives access to the current Selection.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get never fails; it returns the last known value.
// - Set always applies the value in memory. A non-nil error only reports
//   that persistence failed.
type Store interface {
	Get(ctx context.Context) Selection
	Set(ctx context.Context, sel Selection) error
}

// PersistentStore keeps the selection in memory and writes it through to a
// kv.Store so it survives restarts.
type PersistentStore struct {
	backend kv.Store
	key     string
	logger  observe.Logger

	mu      sync.RWMutex
	current Selection
}

// Option configures a PersistentStore.
type Option func(*PersistentStore)

// WithKey overrides the key the selection is stored under.
func WithKey(key string) Option {
	return func(s *PersistentStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger observe.Logger) Option {
	return func(s *PersistentStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPersistentStore creates a store over backend. The in-memory value starts
// as All until Load is called.
func NewPersistentStore(backend kv.Store, opts ...Option) *PersistentStore {
	s := &PersistentStore{
		backend: backend,
		key:     DefaultKey,
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted selection into memory. A missing key loads All.
// Read or decode failures keep the current in-memory value and are logged.
func (s *PersistentStore) Load(ctx context.Context) error {
	if s.backend == nil {
		return fmt.Errorf("%w: %w", ErrNotLoaded, kv.ErrNilStore)
	}

	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		s.mu.Lock()
		s.current = All
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.logger.Warn(ctx, "selection load failed, keeping in-memory value",
			observe.String("key", s.key), observe.Err(err))
		return fmt.Errorf("%w: %w", ErrNotLoaded, err)
	}

	var sel Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		s.logger.Warn(ctx, "selection decode failed, keeping in-memory value",
			observe.String("key", s.key), observe.Err(err))
		return fmt.Errorf("%w: decode: %w", ErrNotLoaded, err)
	}

	s.mu.Lock()
	s.current = sel
	s.mu.Unlock()

	s.logger.Debug(ctx, "selection loaded", observe.String("selection", sel.String()))
	return nil
}

// Get returns the current selection.
func (s *PersistentStore) Get(_ context.Context) Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the selection and writes it through.
func (s *PersistentStore) Set(ctx context.Context, sel Selection) error {
	s.mu.Lock()
	s.current = sel
	s.mu.Unlock()

	if s.backend == nil {
		return fmt.Errorf("%w: %w", ErrNotPersisted, kv.ErrNilStore)
	}

	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrNotPersisted, err)
	}

	if err := s.backend.Set(ctx, s.key, data); err != nil {
		s.logger.Warn(ctx, "selection persist failed, applied in memory only",
			observe.String("key", s.key), observe.Err(err))
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

var _ Store = (*PersistentStore)(nil)
