// Package cache provides the Redis client and key-value helpers for the application.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio/internal/middleware"
	"portfolio/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Store is the key-value contract of the like repository. *redis.Client
// satisfies it.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SCard(ctx context.Context, key string) *redis.IntCmd
}

var _ Store = (*redis.Client)(nil)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrorRate.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// ParseOptions builds client options from a REDIS_URL-like string. It accepts
// either a plain `host:port` or a `redis://`/`rediss://` URL. A non-empty
// token (e.g. a hosted KV access token) overrides the URL password.
func ParseOptions(raw, token string) (*redis.Options, error) {
	if raw == "" {
		raw = "localhost:6379"
	}

	var opts *redis.Options
	if strings.Contains(raw, "://") {
		parsed, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL %q: %w", raw, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: raw}
	}

	if token != "" {
		opts.Password = token
	}
	return opts, nil
}

// NewClient constructs the Redis client. An unreachable server is logged but
// not fatal: KV-backed endpoints fail per request until it comes back.
func NewClient(raw, token string) (*redis.Client, error) {
	opts, err := ParseOptions(raw, token)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	client.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis connection warning (continuing; KV endpoints will fail until reachable)",
			"addr", opts.Addr, "error", err.Error())
	} else {
		middleware.Logger.Info("Redis connected successfully", "addr", opts.Addr)
	}

	return client, nil
}
