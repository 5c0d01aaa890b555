package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/observe"
)

// Source produces status change events. *health.Engine and
// *health.Broadcaster satisfy it.
type Source interface {
	Subscribe(buffer int) (<-chan health.StatusChangeEvent, func())
}

// Notifier converts status change events into inbox notifications.
type Notifier struct {
	source Source
	prefs  *Preferences
	inbox  Inbox
	logger observe.Logger
	buffer int
	now    func() time.Time
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithLogger sets the notifier logger.
func WithLogger(logger observe.Logger) NotifierOption {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithBuffer sets the subscription buffer size.
func WithBuffer(size int) NotifierOption {
	return func(n *Notifier) {
		if size > 0 {
			n.buffer = size
		}
	}
}

// NewNotifier creates a notifier. A nil prefs means always enabled.
func NewNotifier(source Source, prefs *Preferences, inbox Inbox, opts ...NotifierOption) (*Notifier, error) {
	if source == nil {
		return nil, ErrNilSource
	}
	if inbox == nil {
		return nil, ErrNilInbox
	}

	n := &Notifier{
		source: source,
		prefs:  prefs,
		inbox:  inbox,
		logger: observe.NopLogger(),
		buffer: 16,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Run subscribes to the source and consumes events until ctx is done or the
// source closes the subscription.
func (n *Notifier) Run(ctx context.Context) error {
	return n.Subscribe()(ctx)
}

// Subscribe registers with the source immediately and returns the consume
// loop. Events published between Subscribe and the loop starting are
// buffered, so callers can subscribe before the first engine cycle. The
// returned func must be called exactly once; it releases the subscription
// when it returns.
func (n *Notifier) Subscribe() func(ctx context.Context) error {
	events, cancel := n.source.Subscribe(n.buffer)
	return func(ctx context.Context) error {
		defer cancel()
		return n.consume(ctx, events)
	}
}

func (n *Notifier) consume(ctx context.Context, events <-chan health.StatusChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if _, _, err := n.Handle(ctx, ev); err != nil {
				n.logger.Warn(ctx, "notification not stored", observe.Err(err))
			}
		}
	}
}

// Handle applies the gate to ev and stores the resulting notification. The
// bool reports whether a notification was produced.
func (n *Notifier) Handle(ctx context.Context, ev health.StatusChangeEvent) (Notification, bool, error) {
	settings := DefaultSettings()
	if n.prefs != nil {
		s, err := n.prefs.Get(ctx)
		if err != nil {
			n.logger.Warn(ctx, "notification preferences unavailable, using defaults", observe.Err(err))
		}
		settings = s
	}

	if !settings.Allows(ev) {
		n.logger.Debug(ctx, "status change suppressed by preferences",
			observe.String("previous", ev.Previous.String()),
			observe.String("current", ev.Current.String()))
		return Notification{}, false, nil
	}

	note := Compose(ev)
	if note.CreatedAt.IsZero() {
		note.CreatedAt = n.now()
	}
	if err := n.inbox.Add(ctx, note); err != nil {
		return Notification{}, false, err
	}

	n.logger.Info(ctx, "notification created",
		observe.String("id", note.ID.String()),
		observe.String("severity", note.Severity.String()))
	return note, true, nil
}

// Compose builds the notification for ev.
func Compose(ev health.StatusChangeEvent) Notification {
	var title string
	switch ev.Current {
	case health.StatusCritical:
		title = "System critical"
	case health.StatusWarning:
		title = "System degraded"
	default:
		title = "System recovered"
	}

	return Notification{
		ID:        uuid.New(),
		Title:     title,
		Message:   fmt.Sprintf("Overall system status changed from %s to %s.", ev.Previous, ev.Current),
		Severity:  ev.Current,
		Previous:  ev.Previous,
		Current:   ev.Current,
		CreatedAt: ev.Timestamp,
	}
}
