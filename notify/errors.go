package notify

import "errors"

var (
	// ErrNotFound indicates no notification has the given ID.
	ErrNotFound = errors.New("notify: notification not found")

	// ErrNilInbox indicates a Notifier was created without an inbox.
	ErrNilInbox = errors.New("notify: inbox is nil")

	// ErrNilSource indicates a Notifier was created without an event source.
	ErrNilSource = errors.New("notify: event source is nil")

	// ErrNilClient indicates a RedisSink was created without a client.
	ErrNilClient = errors.New("notify: redis client is nil")

	// ErrPreferencesUnavailable indicates the gate could not be read or
	// written. Readers fall back to the defaults.
	ErrPreferencesUnavailable = errors.New("notify: preferences unavailable")
)
