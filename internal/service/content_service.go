package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type similarityReader interface {
	Score(ctx context.Context, courseA, courseB string) (float64, error)
}

type similarityCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ContentService resolves content similarity between courses through a cache.
type ContentService struct {
	repo   similarityReader
	cache  similarityCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewContentService constructs a ContentService. cache may be nil.
func NewContentService(repo similarityReader, cache similarityCache, ttl time.Duration, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &ContentService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Similarity returns a score in [0,1]. Identical course IDs score 1. Misses and store
// failures are returned as errors; callers fall back to a default score.
func (s *ContentService) Similarity(ctx context.Context, courseA, courseB string) (float64, error) {
	if courseA == courseB && courseA != "" {
		return 1, nil
	}
	if s == nil || s.repo == nil {
		return 0, fmt.Errorf("content similarity unavailable")
	}
	key := similarityKey(courseA, courseB)
	if s.cache != nil {
		var cached float64
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}
	score, err := s.repo.Score(ctx, courseA, courseB)
	if err != nil {
		return 0, fmt.Errorf("similarity %s/%s: %w", courseA, courseB, err)
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, score, s.ttl)
	}
	return score, nil
}

func similarityKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return "similarity:" + a + ":" + b
}
