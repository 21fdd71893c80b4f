package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/jobs"
)

// ScheduleJobType tags queued scheduling jobs.
const ScheduleJobType = "schedule"

var errTransientSchedule = errors.New("scheduling snapshot unavailable")

type scheduleJob struct {
	Request models.SchedulingRequest
	Course  models.Course
}

// ScheduleAsync validates req synchronously and hands processing to the job queue.
func (s *SchedulingService) ScheduleAsync(ctx context.Context, req dto.ScheduleRequest) (*dto.AsyncScheduleResponse, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrQueueFull, "asynchronous scheduling is disabled")
	}
	cfg := s.config.Current()
	request, course, err := s.validate(ctx, cfg, req)
	if err != nil {
		s.metrics.RecordScheduling("rejected", 0)
		return nil, err
	}

	s.inflight.Transition(request.ID, models.StateIdle)
	job := jobs.Job{ID: request.ID, Type: ScheduleJobType, Payload: scheduleJob{Request: request, Course: *course}}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.inflight.Forget(request.ID)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Clone(appErrors.ErrQueueFull, "scheduling queue is full")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrQueueFull.Code, appErrors.ErrQueueFull.Status, "failed to enqueue scheduling request")
	}
	return &dto.AsyncScheduleResponse{RequestID: request.ID, State: models.StateIdle}, nil
}

// HandleJob processes a queued request with the configuration active at pickup time.
func (s *SchedulingService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(scheduleJob)
	if !ok {
		s.logger.Error("unexpected scheduling job payload", zap.String("job_id", job.ID))
		s.inflight.Forget(job.ID)
		return nil
	}
	result := s.process(ctx, s.config.Current(), payload.Request, &payload.Course, true)
	if transientFailure(ctx, result) {
		return fmt.Errorf("%w: %s", errTransientSchedule, result.Error.Message)
	}
	return nil
}

// DiscardJob publishes a failed result for a job the queue gave up on, so
// pollers see a terminal state instead of a request stuck in idle.
func (s *SchedulingService) DiscardJob(job jobs.Job, reason error) {
	if job.Type != ScheduleJobType {
		return
	}
	category := models.ErrorCategoryAlgorithm
	switch {
	case errors.Is(reason, errTransientSchedule):
		category = models.ErrorCategoryDataAccess
	case errors.Is(reason, jobs.ErrQueueStopped) || errors.Is(reason, jobs.ErrQueueFull):
		category = models.ErrorCategoryCancelled
	}
	result := models.SchedulingResult{
		RequestID:           job.ID,
		ScheduledClasses:    []models.ScheduledClass{},
		Conflicts:           []models.SchedulingConflict{},
		UnresolvedConflicts: []models.SchedulingConflict{},
		Recommendations:     []models.SchedulingRecommendation{},
		CompletedAt:         s.now().UTC(),
	}
	s.fail(&result, category, fmt.Sprintf("scheduling job discarded: %v", reason))
	s.results.Save(context.Background(), result)
	s.inflight.Transition(job.ID, result.State)
	s.metrics.RecordScheduling(string(result.State), 0)
	s.logger.Warn("scheduling job discarded", zap.String("request_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(reason))
}

// EngineStats is a point-in-time view of engine load.
type EngineStats struct {
	Processed     uint64
	Failed        uint64
	InFlight      int
	QueueDepth    int
	QueueCapacity int
}

// Stats reports request counters and queue load.
func (s *SchedulingService) Stats() EngineStats {
	processed, failed := s.inflight.Counters()
	stats := EngineStats{Processed: processed, Failed: failed, InFlight: s.inflight.Processing()}
	if s.queue != nil {
		stats.QueueDepth = s.queue.Depth()
		stats.QueueCapacity = s.queue.Capacity()
	}
	return stats
}

// SweepResults drops expired in-memory results.
func (s *SchedulingService) SweepResults() int {
	return s.results.Sweep()
}
