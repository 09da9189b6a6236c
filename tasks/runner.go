package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docrag/fault"
)

// Job is the body of one task.
type Job func(ctx context.Context) error

// Runner executes jobs on a worker pool and records their outcome.
type Runner struct {
	tracker *Tracker
	pool    *ants.Pool
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner) error

// WithPoolSize sets the number of concurrent jobs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) RunnerOption {
	return func(r *Runner) error {
		if size < 1 {
			size = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRunner creates a runner reporting to tracker.
func NewRunner(tracker *Tracker, opts ...RunnerOption) (*Runner, error) {
	if tracker == nil {
		return nil, ErrTrackerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		tracker: tracker,
		pool:    pool,
		logger:  slog.Default().With("component", "runner"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

// Submit creates a task for locator and schedules job. It returns the task id
// as soon as the task is PENDING. The job runs once with a context that is
// not cancelled when ctx is.
func (r *Runner) Submit(ctx context.Context, locator string, job Job) (string, error) {
	task, err := r.tracker.Create(ctx, locator)
	if err != nil {
		return "", err
	}
	id := task.Id
	runCtx := context.WithoutCancel(ctx)

	r.wg.Add(1)
	err = r.pool.Submit(func() {
		defer r.wg.Done()
		r.run(runCtx, id, job)
	})
	if err != nil {
		r.wg.Done()
		r.logger.Error("could not schedule task", "task", id, "err", err)
		if startErr := r.tracker.Start(runCtx, id); startErr == nil {
			_ = r.tracker.Fail(runCtx, id, fault.NewUnexpected(err))
		}
		return id, fault.NewUnexpected(err)
	}
	r.logger.Info("submitted task", "task", id, "locator", locator)
	return id, nil
}

func (r *Runner) run(ctx context.Context, id string, job Job) {
	if err := r.tracker.Start(ctx, id); err != nil {
		r.logger.Error("could not start task", "task", id, "err", err)
		return
	}

	err := runJob(ctx, job)
	if err != nil {
		r.logger.Error("task failed", "task", id, "err", err)
		if err := r.tracker.Fail(ctx, id, err); err != nil {
			r.logger.Error("could not record task failure", "task", id, "err", err)
		}
		return
	}

	if err := r.tracker.Succeed(ctx, id); err != nil {
		r.logger.Error("could not record task success", "task", id, "err", err)
		return
	}
	r.logger.Info("task succeeded", "task", id)
}

// runJob converts a panic into an Unexpected fault.
func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fault.NewUnexpected(fmt.Errorf("panic: %v", p))
		}
	}()
	return job(ctx)
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Release waits for running jobs and frees the pool.
func (r *Runner) Release() {
	r.wg.Wait()
	if r.pool != nil {
		r.pool.Release()
	}
}
