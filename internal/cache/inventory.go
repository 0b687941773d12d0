package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LikedByKeyPrefix   = "likes:%s:users"
	LikeCountKeyPrefix = "likes:%s:count"
	GeolocationPrefix  = "geo:%s"
	WeatherKeyPrefix   = "weather:%.2f:%.2f"
	LikeEventsChannel  = "likes:updated"
)

const (
	LikeCountTTL   = time.Hour
	GeolocationTTL = 24 * time.Hour
	WeatherTTL     = 10 * time.Minute
)

func LikedByKey(postID string) string {
	return fmt.Sprintf(LikedByKeyPrefix, postID)
}

func LikeCountKey(postID string) string {
	return fmt.Sprintf(LikeCountKeyPrefix, postID)
}

func GeolocationKey(ip string) string {
	return fmt.Sprintf(GeolocationPrefix, ip)
}

func WeatherKey(lat, lon float64) string {
	return fmt.Sprintf(WeatherKeyPrefix, lat, lon)
}

// JSONStore is the subset of the client needed by the JSON helpers.
type JSONStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// GetJSON decodes the cached value at key into dst. It reports false on a miss.
func GetJSON(ctx context.Context, rdb JSONStore, key string, dst any) (bool, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key with ttl.
func SetJSON(ctx context.Context, rdb JSONStore, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, raw, ttl).Err()
}
