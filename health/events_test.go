package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonwraymond/healthops/observe"
)

func TestDetectChange(t *testing.T) {
	at := time.Now()

	_, changed := DetectChange(StatusHealthy, StatusHealthy, at)
	assert.False(t, changed)

	ev, changed := DetectChange(StatusHealthy, StatusCritical, at)
	require.True(t, changed)
	assert.Equal(t, StatusChangeEvent{Previous: StatusHealthy, Current: StatusCritical, Timestamp: at}, ev)

	ev, changed = DetectChange(StatusCritical, StatusWarning, at)
	require.True(t, changed)
	assert.Equal(t, StatusWarning, ev.Current)
}

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewBroadcaster(observe.NopTelemetry())
	defer b.Close()

	a, cancelA := b.Subscribe(1)
	defer cancelA()
	c, cancelC := b.Subscribe(1)
	defer cancelC()

	ev := StatusChangeEvent{Previous: StatusHealthy, Current: StatusWarning}
	assert.Equal(t, 2, b.Publish(context.Background(), ev))

	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-c)
}

func TestBroadcaster_NoSubscribers(t *testing.T) {
	b := NewBroadcaster(observe.NopTelemetry())
	defer b.Close()

	assert.Zero(t, b.Publish(context.Background(), StatusChangeEvent{}))
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster(observe.NopTelemetry())
	defer b.Close()

	slow, cancelSlow := b.Subscribe(1)
	defer cancelSlow()
	fast, cancelFast := b.Subscribe(10)
	defer cancelFast()

	done := make(chan struct{})
	go func() {
		for i := range 5 {
			b.Publish(context.Background(), StatusChangeEvent{Current: Status(i % 3)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, slow, 1)
	assert.Len(t, fast, 5)
	assert.EqualValues(t, 4, b.Dropped())
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster(observe.NopTelemetry())
	defer b.Close()

	ch, cancel := b.Subscribe(0)
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	assert.Zero(t, b.Subscribers())

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, b.Publish(context.Background(), StatusChangeEvent{}))
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster(observe.NopTelemetry())
	ch, cancel := b.Subscribe(1)

	b.Close()
	b.Close()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	late, _ := b.Subscribe(1)
	_, open = <-late
	assert.False(t, open)
	assert.Zero(t, b.Publish(context.Background(), StatusChangeEvent{}))
}

type recordingSink struct {
	mu     sync.Mutex
	events []StatusChangeEvent
	err    error
}

func (s *recordingSink) Deliver(_ context.Context, ev StatusChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) received() []StatusChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatusChangeEvent(nil), s.events...)
}

func TestBroadcaster_Sinks(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tel := observe.NopTelemetry()
	tel.Logger = observe.NewLoggerFromZap(zap.New(core))

	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("redis down")}
	b := NewBroadcaster(tel, ok)
	b.AddSink(failing)
	b.AddSink(nil)

	ev := StatusChangeEvent{Previous: StatusWarning, Current: StatusHealthy}
	assert.Zero(t, b.Publish(context.Background(), ev), "sinks are not subscribers")

	b.Close()

	assert.Equal(t, []StatusChangeEvent{ev}, ok.received())
	assert.Equal(t, []StatusChangeEvent{ev}, failing.received())
	require.Equal(t, 1, logs.FilterMessage("event sink delivery failed").Len())
}

func TestEngine_SinksReceiveEvents(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(t, WithSinks(sink))

	_, err := e.Init(context.Background())
	require.NoError(t, err)
	require.NoError(t, e.Close())

	got := sink.received()
	require.Len(t, got, 1)
	assert.Equal(t, StatusCritical, got[0].Current)
}
