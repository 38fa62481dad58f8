package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBroker publishes events to a Redis channel and hands out subscriptions
// on the same channel. The live feed subscribes; every service instance
// publishes, so a change made on one instance reaches viewers connected to
// another.
type RedisBroker struct {
	client  *redis.Client
	channel string
}

func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	if channel == "" {
		channel = "catalog.updates"
	}
	return &RedisBroker{client: client, channel: channel}
}

func (b *RedisBroker) Changed(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// Subscribe returns a channel of decoded events. The channel closes when ctx
// is cancelled. Messages that fail to decode are logged and dropped.
func (b *RedisBroker) Subscribe(ctx context.Context) <-chan Event {
	sub := b.client.Subscribe(ctx, b.channel)
	events := make(chan Event)

	go func() {
		defer close(events)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					logrus.WithError(err).Warn("broadcast: dropping malformed event")
					continue
				}
				select {
				case events <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events
}
