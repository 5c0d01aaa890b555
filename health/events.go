package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/healthops/observe"
)

// StatusChangeEvent announces a transition of the overall status.
type StatusChangeEvent struct {
	Previous  Status    `json:"previous"`
	Current   Status    `json:"current"`
	Timestamp time.Time `json:"timestamp"`
}

// DetectChange returns an event when prev and cur differ.
func DetectChange(prev, cur Status, at time.Time) (StatusChangeEvent, bool) {
	if prev == cur {
		return StatusChangeEvent{}, false
	}
	return StatusChangeEvent{Previous: prev, Current: cur, Timestamp: at}, true
}

// EventSink receives every published event outside the subscriber fan-out.
// Deliveries run on their own goroutine and failures are only logged.
type EventSink interface {
	Deliver(ctx context.Context, ev StatusChangeEvent) error
}

const sinkTimeout = 5 * time.Second

// Broadcaster fans events out to subscribers without blocking the publisher.
// A subscriber whose buffer is full misses the event; drops are counted.
type Broadcaster struct {
	logger  observe.Logger
	metrics observe.Metrics

	mu     sync.Mutex
	subs   map[uint64]chan StatusChangeEvent
	nextID uint64
	sinks  []EventSink
	closed bool

	sinkWG  sync.WaitGroup
	dropped atomic.Uint64
}

// NewBroadcaster creates a broadcaster reporting to tel.
func NewBroadcaster(tel observe.Telemetry, sinks ...EventSink) *Broadcaster {
	tel = tel.WithDefaults()
	return &Broadcaster{
		logger:  tel.Logger,
		metrics: tel.Metrics,
		subs:    make(map[uint64]chan StatusChangeEvent),
		sinks:   sinks,
	}
}

// Subscribe registers a subscriber with the given buffer size (minimum 1).
// The returned cancel func unsubscribes and closes the channel; it is safe to
// call more than once. Subscribing to a closed broadcaster yields a closed
// channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan StatusChangeEvent, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan StatusChangeEvent, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// AddSink registers a sink for subsequent events.
func (b *Broadcaster) AddSink(sink EventSink) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Publish delivers ev to every subscriber with buffer room and hands it to
// every sink. It returns the number of subscribers that received the event.
func (b *Broadcaster) Publish(ctx context.Context, ev StatusChangeEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}

	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- ev:
			delivered++
		default:
			b.dropped.Add(1)
			b.metrics.RecordDroppedEvent(ctx)
		}
	}

	for _, sink := range b.sinks {
		b.sinkWG.Add(1)
		go b.deliver(context.WithoutCancel(ctx), sink, ev)
	}

	return delivered
}

func (b *Broadcaster) deliver(ctx context.Context, sink EventSink, ev StatusChangeEvent) {
	defer b.sinkWG.Done()

	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	if err := sink.Deliver(ctx, ev); err != nil {
		b.logger.Warn(ctx, "event sink delivery failed",
			observe.String("previous", ev.Previous.String()),
			observe.String("current", ev.Current.String()),
			observe.Err(err))
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped for full buffers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel and waits for in-flight sink
// deliveries. Further publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		for id, ch := range b.subs {
			delete(b.subs, id)
			close(ch)
		}
	}
	b.mu.Unlock()

	b.sinkWG.Wait()
}
