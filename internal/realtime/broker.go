package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Broker carries events from the emitting process to every hub. The redis
// backend bridges instances; the memory backend is a single-process loopback
// for dev and tests.
type Broker interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Memory is a channel-backed loopback broker.
type Memory struct {
	ch chan Event
}

// NewMemory creates a bounded in-memory broker.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 64
	}
	return &Memory{ch: make(chan Event, size)}
}

// Publish enqueues an event. A full buffer drops the event rather than
// blocking the caller; delivery is at-most-once.
func (m *Memory) Publish(ctx context.Context, evt Event) error {
	select {
	case m.ch <- evt:
	default:
	}
	return nil
}

// Subscribe returns the event stream. Single consumer.
func (m *Memory) Subscribe(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-m.ch:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisBroker fans events out over a redis pub/sub channel so that every
// API instance delivers to its own connected clients.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

// NewRedisBroker builds a broker over the given pub/sub channel.
func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	if channel == "" {
		channel = "collegehub:events"
	}
	return &RedisBroker{client: client, channel: channel}
}

// Publish sends the event to the channel.
func (b *RedisBroker) Publish(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Subscribe streams events published on the channel.
func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan Event)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					log.Printf("realtime: drop malformed event: %v", err)
					continue
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
