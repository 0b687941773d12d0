package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"portfolio/internal/cache"
	"portfolio/internal/middleware"
	"portfolio/internal/models"
	"portfolio/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisherStub struct {
	err    error
	events []models.LikeEvent
}

func (s *publisherStub) PublishLike(_ context.Context, e models.LikeEvent) error {
	s.events = append(s.events, e)
	return s.err
}

func setupLikeService(t *testing.T, limit int) (*LikeService, *miniredis.Miniredis, *publisherStub) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	pub := &publisherStub{}
	svc := NewLikeService(
		repository.NewLikeRepository(rdb),
		middleware.NewFixedWindowLimiter(rdb, "like", limit, time.Hour),
		pub,
	)
	return svc, mr, pub
}

func TestLikeService_ToggleTwice(t *testing.T) {
	svc, mr, pub := setupLikeService(t, 30)
	ctx := context.Background()

	resp, err := svc.Toggle(ctx, "hello-world", "fp1")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeToggleResponse{Liked: true, Count: 1}, resp)

	resp, err = svc.Toggle(ctx, "hello-world", "fp1")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeToggleResponse{Liked: false, Count: 0}, resp)

	assert.Equal(t, cache.LikeCountTTL, mr.TTL(cache.LikeCountKey("hello-world")))
	require.Len(t, pub.events, 2)
	assert.True(t, pub.events[0].Liked)
	assert.Equal(t, int64(0), pub.events[1].Count)
}

func TestLikeService_ToggleUsesCachedCount(t *testing.T) {
	svc, mr, _ := setupLikeService(t, 30)
	ctx := context.Background()

	_, err := mr.SAdd(cache.LikedByKey("p"), "other1", "other2")
	require.NoError(t, err)
	require.NoError(t, mr.Set(cache.LikeCountKey("p"), "10"))

	resp, err := svc.Toggle(ctx, "p", "fp1")
	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.Count)
}

func TestLikeService_ToggleRebuildsMissingCount(t *testing.T) {
	svc, mr, _ := setupLikeService(t, 30)
	ctx := context.Background()

	_, err := mr.SAdd(cache.LikedByKey("p"), "other1", "other2")
	require.NoError(t, err)

	resp, err := svc.Toggle(ctx, "p", "fp1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Count)

	got, err := mr.Get(cache.LikeCountKey("p"))
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestLikeService_CountNeverNegative(t *testing.T) {
	svc, mr, _ := setupLikeService(t, 30)
	ctx := context.Background()

	_, err := mr.SAdd(cache.LikedByKey("p"), "fp1")
	require.NoError(t, err)
	require.NoError(t, mr.Set(cache.LikeCountKey("p"), "0"))

	resp, err := svc.Toggle(ctx, "p", "fp1")
	require.NoError(t, err)
	assert.False(t, resp.Liked)
	assert.Equal(t, int64(0), resp.Count)

	require.NoError(t, mr.Set(cache.LikeCountKey("p"), "-4"))
	status, err := svc.Status(ctx, "p", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), status.Count, "negative counter is rebuilt from the set")

	resp, err = svc.Toggle(ctx, "p", "fp1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Count, int64(0))
}

func TestLikeService_RateLimited(t *testing.T) {
	svc, mr, _ := setupLikeService(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Toggle(ctx, "p", "fp1")
		require.NoError(t, err)
	}

	_, err := svc.Toggle(ctx, "p", "fp1")
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, models.HTTPStatus(err))

	_, err = svc.Toggle(ctx, "p", "fp2")
	assert.NoError(t, err, "limits are per fingerprint")

	mr.FastForward(time.Hour)
	_, err = svc.Toggle(ctx, "p", "fp1")
	assert.NoError(t, err)
}

func TestLikeService_ToggleValidation(t *testing.T) {
	svc, _, _ := setupLikeService(t, 30)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, "p", "")
	require.Error(t, err)
	assert.Equal(t, "Invalid fingerprint", err.Error())

	_, err = svc.Toggle(ctx, "p", "bad fingerprint!")
	require.Error(t, err)
	assert.Equal(t, "Invalid fingerprint", err.Error())

	_, err = svc.Toggle(ctx, "  ", "fp1")
	require.Error(t, err)
	assert.Equal(t, "Invalid post ID", err.Error())
}

func TestLikeService_PublishFailureIgnored(t *testing.T) {
	svc, _, pub := setupLikeService(t, 30)
	pub.err = errors.New("publish failed")

	resp, err := svc.Toggle(context.Background(), "p", "fp1")
	require.NoError(t, err)
	assert.True(t, resp.Liked)
}

func TestLikeService_NilPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	svc := NewLikeService(repository.NewLikeRepository(rdb), middleware.NewFixedWindowLimiter(rdb, "like", 30, time.Hour), nil)
	_, err := svc.Toggle(context.Background(), "p", "fp1")
	assert.NoError(t, err)
}

func TestLikeService_StoreDown(t *testing.T) {
	svc, mr, _ := setupLikeService(t, 30)
	mr.SetError("LOADING")

	_, err := svc.Toggle(context.Background(), "p", "fp1")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, models.HTTPStatus(err))

	_, err = svc.Status(context.Background(), "p", "fp1")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, models.HTTPStatus(err))
}

func TestLikeService_StatusNoLikes(t *testing.T) {
	svc, mr, _ := setupLikeService(t, 30)

	resp, err := svc.Status(context.Background(), "fresh-post", "")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeStatusResponse{Count: 0, Liked: false}, resp)

	got, err := mr.Get(cache.LikeCountKey("fresh-post"))
	require.NoError(t, err)
	assert.Equal(t, "0", got)
}

func TestLikeService_Status(t *testing.T) {
	svc, _, _ := setupLikeService(t, 30)
	ctx := context.Background()

	_, err := svc.Toggle(ctx, "p", "fp1")
	require.NoError(t, err)

	resp, err := svc.Status(ctx, "p", "fp1")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeStatusResponse{Count: 1, Liked: true}, resp)

	resp, err = svc.Status(ctx, "p", "fp2")
	require.NoError(t, err)
	assert.Equal(t, &models.LikeStatusResponse{Count: 1, Liked: false}, resp)

	_, err = svc.Status(ctx, "p", "no spaces allowed")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, models.HTTPStatus(err))
}

func TestLikeService_StatusIgnoresCorruptCount(t *testing.T) {
	svc, mr, _ := setupLikeService(t, 30)

	_, err := mr.SAdd(cache.LikedByKey("p"), "a", "b")
	require.NoError(t, err)
	require.NoError(t, mr.Set(cache.LikeCountKey("p"), "NaN"))

	resp, err := svc.Status(context.Background(), "p", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Count)
}
