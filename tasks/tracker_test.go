package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fault"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	_, repo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	tracker, err := NewTracker(repo)
	require.NoError(t, err)
	return tracker
}

func TestNewTracker_RequiresRepository(t *testing.T) {
	_, err := NewTracker(nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestTracker_SuccessLifecycle(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()

	task, err := tracker.Create(ctx, "http://storage/bucket/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, core.TaskPending, task.Status)
	assert.NotEmpty(t, task.Id)

	require.NoError(t, tracker.Start(ctx, task.Id))
	got, err := tracker.Get(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, core.TaskStarted, got.Status)

	require.NoError(t, tracker.Succeed(ctx, task.Id))
	got, err = tracker.Get(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, core.TaskSuccess, got.Status)
	assert.Empty(t, got.Detail)
	assert.Equal(t, "http://storage/bucket/file.pdf", got.Locator)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestTracker_FailureRecordsFault(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()

	task, err := tracker.Create(ctx, "loc")
	require.NoError(t, err)
	require.NoError(t, tracker.Start(ctx, task.Id))

	f := fault.New(fault.RateLimited, "slow down")
	require.NoError(t, tracker.Fail(ctx, task.Id, f))

	got, err := tracker.Get(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, core.TaskFailure, got.Status)
	assert.Equal(t, "slow down", got.Detail)
	assert.Equal(t, fault.RateLimited.String(), got.FaultKind)
}

func TestTracker_FailureWithPlainError(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()

	task, err := tracker.Create(ctx, "loc")
	require.NoError(t, err)
	require.NoError(t, tracker.Start(ctx, task.Id))
	require.NoError(t, tracker.Fail(ctx, task.Id, errors.New("internal detail")))

	got, err := tracker.Get(ctx, task.Id)
	require.NoError(t, err)
	assert.Equal(t, fault.UnknownLLM.String(), got.FaultKind)
	assert.NotContains(t, got.Detail, "internal detail")
}

func TestTracker_InvalidTransitions(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()

	task, err := tracker.Create(ctx, "loc")
	require.NoError(t, err)

	assert.ErrorIs(t, tracker.Succeed(ctx, task.Id), ErrInvalidTransition, "PENDING -> SUCCESS")
	assert.ErrorIs(t, tracker.Fail(ctx, task.Id, fault.New(fault.ServiceError, "")), ErrInvalidTransition, "PENDING -> FAILURE")

	require.NoError(t, tracker.Start(ctx, task.Id))
	assert.ErrorIs(t, tracker.Start(ctx, task.Id), ErrInvalidTransition, "STARTED -> STARTED")

	require.NoError(t, tracker.Succeed(ctx, task.Id))
	assert.ErrorIs(t, tracker.Fail(ctx, task.Id, fault.New(fault.ServiceError, "")), ErrInvalidTransition, "terminal")
	assert.ErrorIs(t, tracker.Start(ctx, task.Id), ErrInvalidTransition, "terminal")
	assert.ErrorIs(t, tracker.Fail(ctx, task.Id, nil), ErrInvalidTransition)
}

func TestTracker_UnknownTask(t *testing.T) {
	tracker := newTracker(t)

	_, err := tracker.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, tracker.Start(context.Background(), "missing"), ErrTaskNotFound)
}

func TestTracker_List(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()

	first, err := tracker.Create(ctx, "a")
	require.NoError(t, err)
	second, err := tracker.Create(ctx, "b")
	require.NoError(t, err)

	tasks, err := tracker.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	ids := []string{tasks[0].Id, tasks[1].Id}
	assert.ElementsMatch(t, []string{first.Id, second.Id}, ids)
}
