package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/healthops/health"
)

// DefaultInboxSize bounds a MemoryInbox created with a non-positive size.
const DefaultInboxSize = 100

// Notification is one inbox entry produced from a status change.
type Notification struct {
	ID        uuid.UUID     `json:"id"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	Severity  health.Status `json:"severity"`
	Previous  health.Status `json:"previous"`
	Current   health.Status `json:"current"`
	CreatedAt time.Time     `json:"createdAt"`
	Read      bool          `json:"read"`
}

// Inbox stores notifications.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - List returns newest first; limit <= 0 means no limit.
// - MarkRead returns ErrNotFound for unknown IDs.
type Inbox interface {
	Add(ctx context.Context, n Notification) error
	List(ctx context.Context, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// MemoryInbox keeps the most recent notifications in memory. When full the
// oldest entry is evicted.
type MemoryInbox struct {
	mu    sync.Mutex
	size  int
	items []Notification // oldest first
}

// NewMemoryInbox creates an inbox holding up to size notifications.
func NewMemoryInbox(size int) *MemoryInbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &MemoryInbox{size: size}
}

// Add implements Inbox.
func (m *MemoryInbox) Add(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == m.size {
		copy(m.items, m.items[1:])
		m.items = m.items[:len(m.items)-1]
	}
	m.items = append(m.items, n)
	return nil
}

// List implements Inbox.
func (m *MemoryInbox) List(_ context.Context, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Notification, 0, n)
	for i := len(m.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}

// MarkRead implements Inbox.
func (m *MemoryInbox) MarkRead(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

// Unread returns the number of unread notifications.
func (m *MemoryInbox) Unread() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, n := range m.items {
		if !n.Read {
			count++
		}
	}
	return count
}

var _ Inbox = (*MemoryInbox)(nil)
