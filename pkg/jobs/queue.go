package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of background work, such as an asynchronous scheduling request.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

var (
	// ErrQueueFull is returned by TryEnqueue when no buffer space is left.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueStopped is passed to the discard hook for jobs still buffered at Stop.
	ErrQueueStopped = errors.New("queue stopped")
)

// Handler processes a job.
type Handler func(context.Context, Job) error

// DiscardFunc receives jobs that will never complete, with the reason.
type DiscardFunc func(Job, error)

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	OnDiscard  DiscardFunc
	Logger     *zap.Logger
}

// Queue is a bounded in-memory dispatcher. Every accepted job either finishes in
// the handler or reaches OnDiscard exactly once.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	active  atomic.Int64
	retries sync.WaitGroup
	workers sync.WaitGroup

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
}

// NewQueue builds a queue that dispatches to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 1; i <= q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.worker(i)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers), zap.Int("buffer", q.cfg.BufferSize))
}

// Stop cancels the workers, waits for running jobs and discards whatever is still buffered.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cancel()
	q.mu.Unlock()

	q.workers.Wait()
	q.retries.Wait()
	dropped := 0
	for {
		select {
		case job := <-q.jobs:
			q.discard(job, ErrQueueStopped)
			dropped++
		default:
			q.logger.Info("queue stopped", zap.Int("discarded", dropped))
			return
		}
	}
}

// Depth returns queued plus running jobs.
func (q *Queue) Depth() int {
	if q == nil {
		return 0
	}
	return len(q.jobs) + int(q.active.Load())
}

// Capacity returns the buffer size.
func (q *Queue) Capacity() int {
	if q == nil {
		return 0
	}
	return q.cfg.BufferSize
}

// TryEnqueue pushes a job without blocking and returns ErrQueueFull when the buffer is saturated.
func (q *Queue) TryEnqueue(job Job) error {
	if err := q.accepting(); err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) accepting() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case !q.started:
		return fmt.Errorf("queue %s not started", q.name)
	case q.stopped:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}
	return nil
}

func (q *Queue) worker(id int) {
	defer q.workers.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.active.Add(1)
			err := q.run(job)
			q.active.Add(-1)
			if err != nil {
				q.retry(job, err, id)
			}
		}
	}
}

func (q *Queue) run(job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, rec)
		}
	}()
	return q.handler(q.ctx, job)
}

func (q *Queue) retry(job Job, err error, worker int) {
	job.Attempt++
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Int("worker", worker), zap.Error(err)}
	if job.Attempt > q.cfg.MaxRetries {
		q.logger.Error("job exhausted retries", fields...)
		q.discard(job, err)
		return
	}
	q.logger.Warn("job failed, retrying", fields...)

	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.discard(job, ErrQueueStopped)
		case <-timer.C:
			select {
			case q.jobs <- job:
			default:
				q.discard(job, ErrQueueFull)
			}
		}
	}()
}

func (q *Queue) discard(job Job, reason error) {
	if q.cfg.OnDiscard == nil {
		return
	}
	q.cfg.OnDiscard(job, reason)
}
