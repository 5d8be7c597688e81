// Package worker runs queued auto-link jobs one at a time.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/pkg/logger"
	"github.com/okian/rally/pkg/metrics"
)

// Runner executes one job. Implementations must not assume a live
// request context.
type Runner interface {
	RunJob(ctx context.Context, j queue.Job) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
	Len(ctx context.Context) int
}

// Worker processes jobs using the provided Runner.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight, if any.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker. A single worker keeps batches strictly
// sequential.
type InMemoryWorker struct {
	queue  Queue
	runner Runner
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, runner Runner, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		runner:   runner,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			metrics.UpdateJobQueueSize(w.queue.Len(ctx))
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "job failed", logger.String("jobID", j.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown signals the loop to stop and waits for it. Calling it twice is a no-op.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when the loop has exited.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error {
	metrics.UpdateWorkerBusy(true)
	defer metrics.UpdateWorkerBusy(false)

	w.logger.Debug(ctx, "job started", logger.String("jobID", j.ID), logger.String("reason", j.Reason))

	err := w.runner.RunJob(ctx, j)
	latency := float64(time.Since(j.EnqueuedAt).Milliseconds())
	if err != nil {
		metrics.RecordJobProcessed("error", latency)
		metrics.RecordErrorByComponent("worker", "job_error")
		return fmt.Errorf("job %s: %w", j.ID, err)
	}
	metrics.RecordJobProcessed("ok", latency)
	return nil
}
