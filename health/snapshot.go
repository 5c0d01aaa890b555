package health

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// HealthSnapshot is the complete health picture produced by one cycle.
// Snapshots are replaced wholesale; a reader never sees a partial one.
type HealthSnapshot struct {
	OverallStatus Status             `json:"overallStatus"`
	Components    []ComponentStatus  `json:"components"`
	Gauges        map[string]float64 `json:"gauges"`
	LastUpdated   time.Time          `json:"lastUpdated"`
}

// Component returns the status of the named component.
func (s HealthSnapshot) Component(name string) (ComponentStatus, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c.clone(), true
		}
	}
	return ComponentStatus{}, false
}

// Failures returns the number of components whose probe failed.
func (s HealthSnapshot) Failures() int {
	n := 0
	for _, c := range s.Components {
		if c.Failed() {
			n++
		}
	}
	return n
}

func (s HealthSnapshot) clone() HealthSnapshot {
	components := make([]ComponentStatus, len(s.Components))
	for i, c := range s.Components {
		components[i] = c.clone()
	}
	s.Components = components
	s.Gauges = maps.Clone(s.Gauges)
	return s
}

// snapshotStore holds the latest snapshot and a bounded trend window.
// Only the cycle driver writes; reads never block on a cycle.
type snapshotStore struct {
	current atomic.Pointer[HealthSnapshot]

	mu      sync.RWMutex
	history []HealthSnapshot
	next    int
	full    bool
}

func newSnapshotStore(historySize int) *snapshotStore {
	return &snapshotStore{history: make([]HealthSnapshot, historySize)}
}

func (s *snapshotStore) load() (HealthSnapshot, bool) {
	p := s.current.Load()
	if p == nil {
		return HealthSnapshot{}, false
	}
	return *p, true
}

// store publishes snap. The caller must not modify snap afterwards.
func (s *snapshotStore) store(snap HealthSnapshot) {
	s.current.Store(&snap)

	if len(s.history) == 0 {
		return
	}
	s.mu.Lock()
	s.history[s.next] = snap
	s.next = (s.next + 1) % len(s.history)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()
}

// recent returns the trend window, oldest first.
func (s *snapshotStore) recent() []HealthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ordered []HealthSnapshot
	if s.full {
		ordered = append(ordered, s.history[s.next:]...)
	}
	ordered = append(ordered, s.history[:s.next]...)

	out := make([]HealthSnapshot, len(ordered))
	for i, snap := range ordered {
		out[i] = snap.clone()
	}
	return out
}
