package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

const (
	cacheFailureThreshold = 3
	cacheCooldown         = 30 * time.Second
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CacheService fronts the shared cache for similarity scores and scheduling results.
// After cacheFailureThreshold consecutive backend errors the cache is bypassed for
// cacheCooldown so a Redis outage degrades to cache misses instead of slow requests.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
	now        func() time.Time

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled, now: time.Now}
}

// Enabled indicates whether caching is configured.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get reports a hit when dest was filled. Backend errors are returned unless the
// cache is currently bypassed.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.usable() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	switch {
	case err == nil:
		s.recordSuccess()
		s.metrics.RecordCacheOperation(true, duration)
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.recordSuccess()
		s.metrics.RecordCacheOperation(false, duration)
		return false, nil
	default:
		s.recordFailure(err)
		s.metrics.RecordCacheOperation(false, duration)
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value for ttl, or the default TTL when ttl is not positive.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.usable() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.recordFailure(err)
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	s.recordSuccess()
	return nil
}

// Bypassed reports whether repeated failures have switched the cache off.
func (s *CacheService) Bypassed() bool {
	if !s.Enabled() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.openUntil)
}

func (s *CacheService) usable() bool {
	return s.Enabled() && !s.Bypassed()
}

func (s *CacheService) recordSuccess() {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
}

func (s *CacheService) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if s.failures < cacheFailureThreshold {
		return
	}
	s.failures = 0
	s.openUntil = s.now().Add(cacheCooldown)
	s.metrics.RecordDegraded("cache")
	s.logger.Warn("degraded", zap.String("dimension", "cache"), zap.Duration("bypass_for", cacheCooldown), zap.Error(err))
}
