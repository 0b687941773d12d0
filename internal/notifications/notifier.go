// Package notifications publishes like events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"portfolio/internal/cache"
	"portfolio/internal/middleware"
	"portfolio/internal/models"

	"github.com/redis/go-redis/v9"
)

// Notifier provides helpers to publish like events into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishLike broadcasts the new state of a post's likes.
func (n *Notifier) PublishLike(ctx context.Context, event models.LikeEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, cache.LikeEventsChannel, string(payload)).Err()
}

// StartLikeSubscriber subscribes to like events and calls onEvent for each
// decodable message until ctx is cancelled.
func (n *Notifier) StartLikeSubscriber(ctx context.Context, onEvent func(models.LikeEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, cache.LikeEventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", cache.LikeEventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.LikeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					middleware.Logger.Warn("Dropping malformed like event", "error", err.Error())
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("PANIC in like subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(event)
				}()
			}
		}
	}()

	return nil
}
