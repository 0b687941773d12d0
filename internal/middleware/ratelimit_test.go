package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portfolio/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit_FixedWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "like", "x1y2z3", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed, "action %d should be allowed", i)
	}

	allowed, err := CheckRateLimit(ctx, rdb, "like", "x1y2z3", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed, "4th action within the window must be denied")

	// Denied actions do not increment the counter.
	val, err := mr.Get(RateLimitKey("like", "x1y2z3"))
	require.NoError(t, err)
	assert.Equal(t, "3", val)

	// The window TTL is set on the first action and kept by INCR.
	assert.Equal(t, time.Hour, mr.TTL(RateLimitKey("like", "x1y2z3")))

	mr.FastForward(time.Hour + time.Second)

	allowed, err = CheckRateLimit(ctx, rdb, "like", "x1y2z3", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed, "a fresh window admits the actor again")
}

func TestCheckRateLimit_SeparateActors(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	allowed, err := CheckRateLimit(ctx, rdb, "contact", "a", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = CheckRateLimit(ctx, rdb, "contact", "a", 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = CheckRateLimit(ctx, rdb, "contact", "b", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = CheckRateLimit(ctx, rdb, "like", "a", 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed, "resources are counted separately")
}

func TestCheckRateLimit_Errors(t *testing.T) {
	t.Run("Nil client", func(t *testing.T) {
		allowed, err := CheckRateLimit(context.Background(), nil, "like", "x", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("Store unavailable", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		mr.SetError("connection refused")

		allowed, err := CheckRateLimit(context.Background(), rdb, "like", "x", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("Corrupt counter", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		require.NoError(t, mr.Set(RateLimitKey("like", "x"), "not-a-number"))

		_, err := CheckRateLimit(context.Background(), rdb, "like", "x", 1, time.Minute)
		assert.Error(t, err)
	})
}

func TestFixedWindowLimiter(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewFixedWindowLimiter(rdb, "like", 2, time.Hour)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "fp")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "fp")
	assert.False(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("Limits by IP", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Get("/test", RateLimit(rdb, 1, time.Minute, "test"), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		var out models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, models.CodeRateLimited, out.Code)
		_ = resp.Body.Close()
	})

	t.Run("FailOpen with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(nil, 1, time.Minute), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("FailClosed with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/sensitive", RateLimitWithPolicy(nil, 1, time.Minute, FailClosed), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sensitive", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		_ = resp.Body.Close()
	})
}
