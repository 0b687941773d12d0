package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio/internal/models"
	"portfolio/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// CounterStore is the subset of the Redis client used by the limiter.
type CounterStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// RateLimitKey returns the counter key for a resource and actor.
func RateLimitKey(resource, id string) string {
	return fmt.Sprintf("rl:%s:%s", resource, id)
}

// CheckRateLimit consumes one action from a fixed-window counter.
// Returns true if allowed, false if limit exceeded. A denied action does not
// increment the counter. The first action of a window sets the counter to 1
// with the window as TTL; later actions INCR, which keeps the TTL. Two windows
// meeting at a boundary can therefore admit up to 2*limit actions.
func CheckRateLimit(ctx context.Context, rdb CounterStore, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, errors.New("redis client is nil")
	}

	key := RateLimitKey(resource, id)

	current, err := rdb.Get(ctx, key).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		if err := rdb.Set(ctx, key, 1, window).Err(); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	}

	if current >= int64(limit) {
		observability.RateLimitRejections.WithLabelValues(resource).Inc()
		return false, nil
	}
	if err := rdb.Incr(ctx, key).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// FixedWindowLimiter binds CheckRateLimit to one resource, limit and window.
type FixedWindowLimiter struct {
	store    CounterStore
	resource string
	limit    int
	window   time.Duration
}

// NewFixedWindowLimiter creates a limiter for resource allowing limit actions per window.
func NewFixedWindowLimiter(store CounterStore, resource string, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{store: store, resource: resource, limit: limit, window: window}
}

// Allow consumes one action for the actor id.
func (l *FixedWindowLimiter) Allow(ctx context.Context, id string) (bool, error) {
	return CheckRateLimit(ctx, l.store, l.resource, id, l.limit, l.window)
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`
// keyed by remote IP. It defaults to FailOpen policy.
func RateLimit(rdb CounterStore, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy returns a Fiber middleware enforcing `limit` requests per `window` with a specific failure policy.
func RateLimitWithPolicy(rdb CounterStore, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "Rate limit fail-closed",
					"path", c.Path(), "resource", resource, "error", err.Error())
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Error: "Rate limit unavailable",
					Code:  models.CodeInternal,
				})
			}
			Logger.WarnContext(c.UserContext(), "Rate limit store unavailable; allowing request",
				"path", c.Path(), "resource", resource, "error", err.Error())
			return c.Next()
		}

		if !allowed {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitError(), false)
		}
		return c.Next()
	}
}
