package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardLog struct {
	mu      sync.Mutex
	reasons map[string]error
}

func (d *discardLog) record(job Job, reason error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reasons == nil {
		d.reasons = map[string]error{}
	}
	d.reasons[job.ID] = reason
}

func (d *discardLog) get(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reasons[id]
}

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{ID: "a"}))
	require.NoError(t, q.TryEnqueue(Job{ID: "b"}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(time.Second):
			t.Fatal("job was not processed")
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, seen)
	assert.Equal(t, 4, q.Capacity())
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan int, 1)
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if attempts.Add(1) == 1 {
			return errors.New("transient")
		}
		done <- job.Attempt
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 2, MaxRetries: 1, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{ID: "a"}))
	select {
	case attempt := <-done:
		assert.Equal(t, 1, attempt)
	case <-time.After(time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueDiscardsAfterRetriesAndPanics(t *testing.T) {
	log := &discardLog{}
	q := NewQueue("discard", func(ctx context.Context, job Job) error {
		if job.ID == "boom" {
			panic("broken payload")
		}
		return errors.New("permanent")
	}, QueueConfig{Workers: 1, BufferSize: 2, OnDiscard: log.record})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(Job{ID: "boom"}))
	require.NoError(t, q.TryEnqueue(Job{ID: "fail"}))

	require.Eventually(t, func() bool {
		return log.get("boom") != nil && log.get("fail") != nil
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, log.get("boom").Error(), "panicked")
	assert.EqualError(t, log.get("fail"), "permanent")
}

func TestQueueStopDiscardsBufferedJobs(t *testing.T) {
	log := &discardLog{}
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("stop", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 2, OnDiscard: log.record})
	q.Start(context.Background())

	require.NoError(t, q.TryEnqueue(Job{ID: "running"}))
	<-started
	require.NoError(t, q.TryEnqueue(Job{ID: "waiting"}))
	close(release)
	q.Stop()

	if reason := log.get("waiting"); reason != nil {
		assert.ErrorIs(t, reason, ErrQueueStopped)
	}
	assert.NoError(t, log.get("running"))
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "late"}), ErrQueueStopped)
}

func TestQueueTryEnqueueReportsFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.TryEnqueue(Job{ID: "running"}))
	<-started
	require.NoError(t, q.TryEnqueue(Job{ID: "buffered"}))
	assert.ErrorIs(t, q.TryEnqueue(Job{ID: "rejected"}), ErrQueueFull)
	assert.Equal(t, 2, q.Depth())
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.TryEnqueue(Job{ID: "a"}))

	var nilQueue *Queue
	assert.Equal(t, 0, nilQueue.Depth())
	assert.Equal(t, 0, nilQueue.Capacity())
}
