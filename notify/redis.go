package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/healthops/health"
)

// DefaultChannel is the pub/sub channel status changes are published on.
const DefaultChannel = "healthops:status-changes"

// RedisSink publishes status change events as JSON on a Redis channel.
type RedisSink struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisSink creates a sink publishing on channel (DefaultChannel when
// empty).
func NewRedisSink(client redis.UniversalClient, channel string) (*RedisSink, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSink{client: client, channel: channel}, nil
}

// Channel returns the channel name.
func (s *RedisSink) Channel() string {
	return s.channel
}

// Deliver implements health.EventSink.
func (s *RedisSink) Deliver(ctx context.Context, ev health.StatusChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", s.channel, err)
	}
	return nil
}

var _ health.EventSink = (*RedisSink)(nil)
