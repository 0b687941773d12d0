package repository

import (
	"context"
	"errors"
	"strconv"

	"portfolio/internal/cache"

	"github.com/redis/go-redis/v9"
)

// LikeRepository stores like state in Redis. The set of fingerprints is the
// source of truth; the counter is a cache that can be rebuilt from it.
type LikeRepository interface {
	IsMember(ctx context.Context, postID, fingerprint string) (bool, error)
	Add(ctx context.Context, postID, fingerprint string) error
	Remove(ctx context.Context, postID, fingerprint string) error
	Cardinality(ctx context.Context, postID string) (int64, error)
	CachedCount(ctx context.Context, postID string) (int64, bool, error)
	SetCount(ctx context.Context, postID string, count int64) error
}

type likeRepository struct {
	rdb cache.Store
}

// NewLikeRepository creates a LikeRepository.
func NewLikeRepository(rdb cache.Store) LikeRepository {
	return &likeRepository{rdb: rdb}
}

func (r *likeRepository) IsMember(ctx context.Context, postID, fingerprint string) (bool, error) {
	return r.rdb.SIsMember(ctx, cache.LikedByKey(postID), fingerprint).Result()
}

func (r *likeRepository) Add(ctx context.Context, postID, fingerprint string) error {
	return r.rdb.SAdd(ctx, cache.LikedByKey(postID), fingerprint).Err()
}

func (r *likeRepository) Remove(ctx context.Context, postID, fingerprint string) error {
	return r.rdb.SRem(ctx, cache.LikedByKey(postID), fingerprint).Err()
}

func (r *likeRepository) Cardinality(ctx context.Context, postID string) (int64, error) {
	return r.rdb.SCard(ctx, cache.LikedByKey(postID)).Result()
}

// CachedCount returns the denormalized counter. A missing, non-numeric or
// negative value reports ok=false so callers fall back to Cardinality.
func (r *likeRepository) CachedCount(ctx context.Context, postID string) (int64, bool, error) {
	raw, err := r.rdb.Get(ctx, cache.LikeCountKey(postID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false, nil
	}
	return n, true, nil
}

func (r *likeRepository) SetCount(ctx context.Context, postID string, count int64) error {
	return r.rdb.Set(ctx, cache.LikeCountKey(postID), count, cache.LikeCountTTL).Err()
}
