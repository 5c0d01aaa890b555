package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/kv"
)

// DefaultPreferencesKey is the key the gate is persisted under.
const DefaultPreferencesKey = "notify.preferences"

// Settings is the user's notification gate.
type Settings struct {
	// Enabled turns status-change notifications on or off.
	Enabled bool `json:"enabled"`

	// Recoveries also notifies when the status improves.
	Recoveries bool `json:"recoveries"`
}

// DefaultSettings returns the gate used when nothing was saved.
func DefaultSettings() Settings {
	return Settings{Enabled: true, Recoveries: true}
}

// Allows reports whether ev should produce a notification.
func (s Settings) Allows(ev health.StatusChangeEvent) bool {
	if !s.Enabled {
		return false
	}
	return s.Recoveries || ev.Current > ev.Previous
}

// Preferences persists Settings in a kv.Store.
type Preferences struct {
	store kv.Store
	key   string
}

// NewPreferences creates a gate stored under key (DefaultPreferencesKey
// when empty).
func NewPreferences(store kv.Store, key string) *Preferences {
	if key == "" {
		key = DefaultPreferencesKey
	}
	return &Preferences{store: store, key: key}
}

// Get returns the saved settings. A missing key yields DefaultSettings; read
// or decode failures yield DefaultSettings together with an error wrapping
// ErrPreferencesUnavailable.
func (p *Preferences) Get(ctx context.Context) (Settings, error) {
	if p.store == nil {
		return DefaultSettings(), fmt.Errorf("%w: %w", ErrPreferencesUnavailable, kv.ErrNilStore)
	}

	data, err := p.store.Get(ctx, p.key)
	if errors.Is(err, kv.ErrNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("%w: %w", ErrPreferencesUnavailable, err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("%w: decode: %w", ErrPreferencesUnavailable, err)
	}
	return settings, nil
}

// Set saves settings.
func (p *Preferences) Set(ctx context.Context, settings Settings) error {
	if p.store == nil {
		return fmt.Errorf("%w: %w", ErrPreferencesUnavailable, kv.ErrNilStore)
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPreferencesUnavailable, err)
	}
	if err := p.store.Set(ctx, p.key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPreferencesUnavailable, err)
	}
	return nil
}
