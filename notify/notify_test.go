package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/kv"
	"github.com/jonwraymond/healthops/observe"
)

var errBackend = errors.New("backend down")

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errBackend }
func (brokenStore) Set(context.Context, string, []byte) error { return errBackend }
func (brokenStore) Delete(context.Context, string) error { return errBackend }

func change(prev, cur health.Status) health.StatusChangeEvent {
	return health.StatusChangeEvent{
		Previous:  prev,
		Current:   cur,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPreferences_DefaultEnabled(t *testing.T) {
	prefs := NewPreferences(kv.NewMemoryStore(), "")

	got, err := prefs.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)
	assert.True(t, got.Enabled)
}

func TestPreferences_RoundTripRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	prefs := NewPreferences(kv.NewRedisStore(client), "")
	require.NoError(t, prefs.Set(ctx, Settings{Enabled: false, Recoveries: true}))

	reloaded := NewPreferences(kv.NewRedisStore(client), "")
	got, err := reloaded.Get(ctx)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	raw, err := mr.Get(DefaultPreferencesKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":false,"recoveries":true}`, raw)
}

func TestPreferences_Failures(t *testing.T) {
	ctx := context.Background()

	prefs := NewPreferences(brokenStore{}, "")
	got, err := prefs.Get(ctx)
	assert.ErrorIs(t, err, ErrPreferencesUnavailable)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, DefaultSettings(), got)
	assert.ErrorIs(t, prefs.Set(ctx, DefaultSettings()), ErrPreferencesUnavailable)

	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, DefaultPreferencesKey, []byte(`not json`)))
	got, err = NewPreferences(store, "").Get(ctx)
	assert.ErrorIs(t, err, ErrPreferencesUnavailable)
	assert.Equal(t, DefaultSettings(), got)

	_, err = NewPreferences(nil, "").Get(ctx)
	assert.ErrorIs(t, err, kv.ErrNilStore)
}

func TestSettings_Allows(t *testing.T) {
	worse := change(health.StatusHealthy, health.StatusCritical)
	better := change(health.StatusCritical, health.StatusWarning)

	assert.True(t, DefaultSettings().Allows(worse))
	assert.True(t, DefaultSettings().Allows(better))

	noRecoveries := Settings{Enabled: true}
	assert.True(t, noRecoveries.Allows(worse))
	assert.False(t, noRecoveries.Allows(better))

	assert.False(t, Settings{}.Allows(worse))
}

func TestMemoryInbox(t *testing.T) {
	ctx := context.Background()
	inbox := NewMemoryInbox(3)

	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, inbox.Add(ctx, Notification{ID: ids[i]}))
	}

	all, err := inbox.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{ids[4], ids[3], ids[2]}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})

	top, err := inbox.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, ids[4], top[0].ID)

	assert.Equal(t, 3, inbox.Unread())
	require.NoError(t, inbox.MarkRead(ctx, ids[3]))
	assert.Equal(t, 2, inbox.Unread())
	assert.ErrorIs(t, inbox.MarkRead(ctx, ids[0]), ErrNotFound, "evicted")
}

func TestCompose(t *testing.T) {
	ev := change(health.StatusHealthy, health.StatusCritical)
	n := Compose(ev)

	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, "System critical", n.Title)
	assert.Equal(t, "Overall system status changed from healthy to critical.", n.Message)
	assert.Equal(t, health.StatusCritical, n.Severity)
	assert.Equal(t, ev.Timestamp, n.CreatedAt)
	assert.Equal(t, "System recovered", Compose(change(health.StatusWarning, health.StatusHealthy)).Title)
	assert.Equal(t, "System degraded", Compose(change(health.StatusHealthy, health.StatusWarning)).Title)
}

func TestNotifier_Handle(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	prefs := NewPreferences(store, "")
	inbox := NewMemoryInbox(10)

	n, err := NewNotifier(health.NewBroadcaster(observe.NopTelemetry()), prefs, inbox)
	require.NoError(t, err)

	note, ok, err := n.Handle(ctx, change(health.StatusHealthy, health.StatusWarning))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, health.StatusWarning, note.Current)

	require.NoError(t, prefs.Set(ctx, Settings{Enabled: false}))
	_, ok, err = n.Handle(ctx, change(health.StatusWarning, health.StatusCritical))
	require.NoError(t, err)
	assert.False(t, ok, "gate disabled")

	list, _ := inbox.List(ctx, 0)
	assert.Len(t, list, 1)
}

func TestNotifier_BrokenPreferencesFallBackToEnabled(t *testing.T) {
	inbox := NewMemoryInbox(10)
	n, err := NewNotifier(health.NewBroadcaster(observe.NopTelemetry()), NewPreferences(brokenStore{}, ""), inbox)
	require.NoError(t, err)

	_, ok, err := n.Handle(context.Background(), change(health.StatusHealthy, health.StatusCritical))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewNotifier_Validation(t *testing.T) {
	_, err := NewNotifier(nil, nil, NewMemoryInbox(1))
	assert.ErrorIs(t, err, ErrNilSource)

	_, err = NewNotifier(health.NewBroadcaster(observe.NopTelemetry()), nil, nil)
	assert.ErrorIs(t, err, ErrNilInbox)
}

func TestNotifier_Run(t *testing.T) {
	b := health.NewBroadcaster(observe.NopTelemetry())
	inbox := NewMemoryInbox(10)
	n, err := NewNotifier(b, nil, inbox)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	b.Publish(ctx, change(health.StatusHealthy, health.StatusCritical))
	b.Publish(ctx, change(health.StatusCritical, health.StatusHealthy))

	require.Eventually(t, func() bool {
		list, _ := inbox.List(ctx, 0)
		return len(list) == 2
	}, time.Second, 5*time.Millisecond)

	list, _ := inbox.List(ctx, 0)
	assert.Equal(t, health.StatusHealthy, list[0].Current, "newest first")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 0, b.Subscribers())
}

func TestNotifier_SubscribeBeforeFirstEvent(t *testing.T) {
	b := health.NewBroadcaster(observe.NopTelemetry())
	inbox := NewMemoryInbox(10)
	n, err := NewNotifier(b, nil, inbox)
	require.NoError(t, err)

	consume := n.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	// Published before the loop runs, as a startup cycle would be.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Publish(ctx, change(health.StatusHealthy, health.StatusCritical))

	done := make(chan error, 1)
	go func() { done <- consume(ctx) }()

	require.Eventually(t, func() bool {
		list, _ := inbox.List(ctx, 0)
		return len(list) == 1
	}, time.Second, 5*time.Millisecond)
	list, _ := inbox.List(ctx, 0)
	assert.Equal(t, health.StatusCritical, list[0].Current)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, b.Subscribers())
}

func TestNotifier_RunStopsWhenSourceCloses(t *testing.T) {
	b := health.NewBroadcaster(observe.NopTelemetry())
	n, err := NewNotifier(b, nil, NewMemoryInbox(1))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- n.Run(context.Background()) }()
	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	b.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after close")
	}
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	sink, err := NewRedisSink(client, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultChannel, sink.Channel())

	sub := client.Subscribe(ctx, sink.Channel())
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	ev := change(health.StatusWarning, health.StatusCritical)
	require.NoError(t, sink.Deliver(ctx, ev))

	recvCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.ReceiveMessage(recvCtx)
	require.NoError(t, err)

	var got health.StatusChangeEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, ev, got)
}

func TestRedisSink_Errors(t *testing.T) {
	_, err := NewRedisSink(nil, "x")
	assert.ErrorIs(t, err, ErrNilClient)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	sink, err := NewRedisSink(client, "events")
	require.NoError(t, err)

	mr.Close()
	assert.Error(t, sink.Deliver(context.Background(), change(health.StatusHealthy, health.StatusWarning)))
}
