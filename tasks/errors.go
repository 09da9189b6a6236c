package tasks

import "errors"

var (
	// ErrTaskNotFound is returned for an unknown task id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the task's current status.
	ErrInvalidTransition = errors.New("invalid task transition")

	// ErrRepositoryRequired is returned when a task repository is not provided.
	ErrRepositoryRequired = errors.New("task repository required")

	// ErrTrackerRequired is returned when a tracker is not provided.
	ErrTrackerRequired = errors.New("tracker required")
)
