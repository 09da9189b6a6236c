package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fault"
	"github.com/poiesic/docrag/storage"
)

var transitions = map[core.TaskStatus]core.TaskStatus{
	core.TaskStarted: core.TaskPending,
	core.TaskSuccess: core.TaskStarted,
	core.TaskFailure: core.TaskStarted,
}

// Tracker records the lifecycle of ingestion tasks.
type Tracker struct {
	repo   storage.TaskRepository
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

// NewTracker creates a tracker persisting to repo.
func NewTracker(repo storage.TaskRepository) (*Tracker, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	return &Tracker{
		repo:   repo,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default().With("component", "tasks"),
	}, nil
}

// Create registers a PENDING task for locator.
func (t *Tracker) Create(ctx context.Context, locator string) (*core.TaskRecord, error) {
	now := t.now()
	task := &core.TaskRecord{
		Id:        uuid.NewString(),
		Locator:   locator,
		Status:    core.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.repo.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	t.logger.Debug("created task", "task", task.Id, "locator", locator)
	return task, nil
}

// Start moves a PENDING task to STARTED.
func (t *Tracker) Start(ctx context.Context, id string) error {
	_, err := t.transition(ctx, id, core.TaskStarted, nil)
	return err
}

// Succeed moves a STARTED task to SUCCESS.
func (t *Tracker) Succeed(ctx context.Context, id string) error {
	_, err := t.transition(ctx, id, core.TaskSuccess, nil)
	return err
}

// Fail moves a STARTED task to FAILURE and records cause. Errors other than
// faults are recorded as UnknownLlmFault.
func (t *Tracker) Fail(ctx context.Context, id string, cause error) error {
	f := fault.Translate(fault.Ensure(cause))
	if f == nil {
		return fmt.Errorf("%w: failure without cause", ErrInvalidTransition)
	}
	_, err := t.transition(ctx, id, core.TaskFailure, f)
	return err
}

// Get returns the task with the given id.
func (t *Tracker) Get(ctx context.Context, id string) (*core.TaskRecord, error) {
	task, err := t.repo.GetTask(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return task, err
}

// List returns every known task, oldest first.
func (t *Tracker) List(ctx context.Context) ([]*core.TaskRecord, error) {
	return t.repo.ListTasks(ctx)
}

func (t *Tracker) transition(ctx context.Context, id string, to core.TaskStatus, f *fault.Fault) (*core.TaskRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, err := t.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if from := transitions[to]; task.Status != from {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, to)
	}

	task.Status = to
	task.UpdatedAt = t.now()
	if f != nil {
		task.Detail = f.Message
		task.FaultKind = f.Kind.String()
	}
	if err := t.repo.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	t.logger.Debug("task transition", "task", id, "status", string(to))
	return task, nil
}
