// Package queue runs the background side of the pipeline: a worker pool
// draining the store-backed job queue, and a cron scheduler that enqueues
// the recurring refresh slots. Triggers only ever enqueue; execution
// happens here.
package queue

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/partybase-ng/directory-cli/internal/config"
	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/store"
)

// Runner executes one dequeued job. The pipeline coordinator is the only
// production implementation.
type Runner interface {
	Execute(ctx context.Context, job *model.RunJob) (*model.Run, error)
}

// Worker polls the job queue and executes claimed jobs. One job occupies
// one worker for its full duration.
type Worker struct {
	cfg    config.QueueConfig
	store  store.Store
	runner Runner
	now    func() time.Time
}

// NewWorker creates a Worker.
func NewWorker(cfg config.QueueConfig, st store.Store, runner Runner) *Worker {
	return &Worker{cfg: cfg, store: st, runner: runner, now: time.Now}
}

// Run polls until the context is cancelled, fanning out to the configured
// number of worker goroutines.
func (w *Worker) Run(ctx context.Context) error {
	workers := w.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	poll := time.Duration(w.cfg.PollSecs) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}

	zap.L().Info("queue: worker started",
		zap.Int("workers", workers), zap.Duration("poll", poll))

	g, ctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			ticker := time.NewTicker(poll)
			defer ticker.Stop()
			for {
				w.drain(ctx)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// drain executes queued jobs until the queue is empty or the context ends.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		ok, err := w.ProcessOne(ctx)
		if err != nil {
			zap.L().Error("queue: process job", zap.Error(err))
			return
		}
		if !ok {
			return
		}
	}
}

// ProcessOne claims and executes at most one job. It reports whether a job
// was claimed; execution failures are recorded on the job, not returned.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	job, err := w.store.DequeueJob(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	log := zap.L().With(
		zap.String("job_id", job.ID),
		zap.String("trigger", string(job.Trigger)),
		zap.Int("attempt", job.Attempts),
	)
	log.Info("queue: job claimed")

	if _, execErr := w.runner.Execute(ctx, job); execErr != nil {
		retryAt := w.now().UTC().Add(w.backoff(job.Attempts))
		if err := w.store.FailJob(ctx, job.ID, execErr.Error(), retryAt); err != nil {
			return true, err
		}
		log.Warn("queue: job failed", zap.Error(execErr), zap.Time("retry_at", retryAt))
		return true, nil
	}

	if err := w.store.CompleteJob(ctx, job.ID); err != nil {
		return true, err
	}
	log.Info("queue: job completed")
	return true, nil
}

// backoff returns the exponential retry delay after the given attempt count.
func (w *Worker) backoff(attempts int) time.Duration {
	base := time.Duration(w.cfg.BackoffSecs) * time.Second
	if base <= 0 {
		base = time.Minute
	}
	if attempts < 1 {
		attempts = 1
	}
	return base * time.Duration(math.Pow(2, float64(attempts-1)))
}
