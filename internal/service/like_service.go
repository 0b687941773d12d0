package service

import (
	"context"
	"fmt"
	"time"

	"portfolio/internal/models"
	"portfolio/internal/observability"
	"portfolio/internal/repository"
	"portfolio/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// LikePublisher broadcasts like state changes.
type LikePublisher interface {
	PublishLike(ctx context.Context, event models.LikeEvent) error
}

type LikeService struct {
	repo      repository.LikeRepository
	limiter   RateLimiter
	publisher LikePublisher
	logger    *observability.ServiceLogger
	now       func() time.Time
}

// NewLikeService creates a LikeService. publisher may be nil.
func NewLikeService(repo repository.LikeRepository, limiter RateLimiter, publisher LikePublisher) *LikeService {
	return &LikeService{
		repo:      repo,
		limiter:   limiter,
		publisher: publisher,
		logger:    observability.NewServiceLogger("likes"),
		now:       time.Now,
	}
}

// Toggle flips the fingerprint's like on a post and returns the new state.
// The read-then-write sequence is not atomic; concurrent toggles by the same
// fingerprint can leave the counter off until it expires and is rebuilt.
func (s *LikeService) Toggle(ctx context.Context, postID, fingerprint string) (resp *models.LikeToggleResponse, err error) {
	postID, err = validation.PostID(postID)
	if err != nil {
		return nil, err
	}
	if err := validation.Fingerprint(fingerprint); err != nil {
		return nil, err
	}

	span, ctx := observability.StartSpan(ctx, "likes", "toggle", attribute.String("post.id", postID))
	defer span.End()
	defer func() { span.SetError(err) }()

	allowed, err := s.limiter.Allow(ctx, fingerprint)
	if err != nil {
		s.logger.LogCriticalFailure(ctx, "rate_limit", err)
		return nil, models.NewInternalError(fmt.Errorf("rate limit: %w", err))
	}
	if !allowed {
		s.logger.LogRejected(ctx, "rate_limited", map[string]interface{}{"post_id": postID})
		return nil, models.NewRateLimitError()
	}

	liked, err := s.repo.IsMember(ctx, postID, fingerprint)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("check like: %w", err))
	}
	cached, hasCached, err := s.repo.CachedCount(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("read like count: %w", err))
	}

	var count int64
	if liked {
		if err := s.repo.Remove(ctx, postID, fingerprint); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("remove like: %w", err))
		}
		if hasCached && cached > 0 {
			count = cached - 1
		} else if count, err = s.repo.Cardinality(ctx, postID); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("count likes: %w", err))
		}
	} else {
		if err := s.repo.Add(ctx, postID, fingerprint); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("add like: %w", err))
		}
		if hasCached {
			count = cached + 1
		} else if count, err = s.repo.Cardinality(ctx, postID); err != nil {
			return nil, models.NewInternalError(fmt.Errorf("count likes: %w", err))
		}
	}
	if count < 0 {
		count = 0
	}

	if err := s.repo.SetCount(ctx, postID, count); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("store like count: %w", err))
	}

	nowLiked := !liked
	action := "unlike"
	if nowLiked {
		action = "like"
	}
	observability.LikeToggles.WithLabelValues(action).Inc()

	if s.publisher != nil {
		event := models.LikeEvent{
			PostID:    postID,
			Count:     count,
			Liked:     nowLiked,
			UpdatedAt: s.now().UTC().Format(time.RFC3339),
		}
		if err := s.publisher.PublishLike(ctx, event); err != nil {
			s.logger.LogBestEffortFailure(ctx, "publish_like", err, map[string]interface{}{"post_id": postID})
		}
	}

	return &models.LikeToggleResponse{Liked: nowLiked, Count: count}, nil
}

// Status returns the like count of a post and whether fingerprint liked it.
// The fingerprint is optional.
func (s *LikeService) Status(ctx context.Context, postID, fingerprint string) (resp *models.LikeStatusResponse, err error) {
	postID, err = validation.PostID(postID)
	if err != nil {
		return nil, err
	}
	if fingerprint != "" {
		if err := validation.Fingerprint(fingerprint); err != nil {
			return nil, err
		}
	}

	span, ctx := observability.StartSpan(ctx, "likes", "status", attribute.String("post.id", postID))
	defer span.End()
	defer func() { span.SetError(err) }()

	count, ok, err := s.repo.CachedCount(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("read like count: %w", err))
	}
	if !ok {
		count, err = s.repo.Cardinality(ctx, postID)
		if err != nil {
			return nil, models.NewInternalError(fmt.Errorf("count likes: %w", err))
		}
		if err := s.repo.SetCount(ctx, postID, count); err != nil {
			s.logger.LogBestEffortFailure(ctx, "repopulate_like_count", err, map[string]interface{}{"post_id": postID})
		}
	}

	liked := false
	if fingerprint != "" {
		liked, err = s.repo.IsMember(ctx, postID, fingerprint)
		if err != nil {
			return nil, models.NewInternalError(fmt.Errorf("check like: %w", err))
		}
	}

	return &models.LikeStatusResponse{Count: count, Liked: liked}, nil
}
