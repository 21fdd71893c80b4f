package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type storedResult struct {
	result  models.SchedulingResult
	savedAt time.Time
}

// resultStore keeps scheduling results for later retrieval. Entries live in memory for
// ttl and are mirrored to the shared cache when one is configured.
type resultStore struct {
	ttl    time.Duration
	cache  resultCache
	logger *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	items map[string]storedResult
}

func newResultStore(ttl time.Duration, cache resultCache, logger *zap.Logger) *resultStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &resultStore{
		ttl:    ttl,
		cache:  cache,
		logger: logger,
		now:    time.Now,
		items:  make(map[string]storedResult),
	}
}

func (s *resultStore) Save(ctx context.Context, result models.SchedulingResult) {
	s.mu.Lock()
	s.items[result.RequestID] = storedResult{result: result, savedAt: s.now()}
	s.mu.Unlock()
	if s.cache != nil {
		if err := s.cache.Set(ctx, resultKey(result.RequestID), result, s.ttl); err != nil {
			s.logger.Warn("failed to mirror scheduling result", zap.String("request_id", result.RequestID), zap.Error(err))
		}
	}
}

func (s *resultStore) Get(ctx context.Context, id string) (models.SchedulingResult, bool) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if ok {
		if s.now().Sub(item.savedAt) <= s.ttl {
			return item.result, true
		}
		s.Delete(id)
	}
	if s.cache == nil {
		return models.SchedulingResult{}, false
	}
	var cached models.SchedulingResult
	hit, err := s.cache.Get(ctx, resultKey(id), &cached)
	if err != nil {
		s.logger.Warn("failed to read scheduling result from cache", zap.String("request_id", id), zap.Error(err))
		return models.SchedulingResult{}, false
	}
	return cached, hit
}

func (s *resultStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Sweep drops expired in-memory entries.
func (s *resultStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, item := range s.items {
		if item.savedAt.Before(cutoff) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

func resultKey(id string) string {
	return "scheduling:result:" + id
}

// inFlightRegistry tracks the processing state of each request and engine counters.
type inFlightRegistry struct {
	mu        sync.Mutex
	states    map[string]models.ProcessingState
	processed atomic.Uint64
	failed    atomic.Uint64
}

func newInFlightRegistry() *inFlightRegistry {
	return &inFlightRegistry{states: make(map[string]models.ProcessingState)}
}

// Transition moves id to state. Terminal states clear the entry and update counters.
func (r *inFlightRegistry) Transition(id string, state models.ProcessingState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch state {
	case models.StateCompleted, models.StateFailed:
		delete(r.states, id)
		r.processed.Add(1)
		if state == models.StateFailed {
			r.failed.Add(1)
		}
	default:
		r.states[id] = state
	}
}

// Forget drops id without touching counters.
func (r *inFlightRegistry) Forget(id string) {
	r.mu.Lock()
	delete(r.states, id)
	r.mu.Unlock()
}

func (r *inFlightRegistry) State(id string) (models.ProcessingState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[id]
	return state, ok
}

// Processing counts requests currently in the processing state.
func (r *inFlightRegistry) Processing() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, state := range r.states {
		if state == models.StateProcessing {
			n++
		}
	}
	return n
}

// Counters returns processed and failed totals.
func (r *inFlightRegistry) Counters() (uint64, uint64) {
	return r.processed.Load(), r.failed.Load()
}
