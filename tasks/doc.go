// Package tasks tracks asynchronous ingestion tasks.
//
// A task moves PENDING -> STARTED -> SUCCESS or FAILURE and never leaves a
// terminal state. Tracker enforces the transitions and persists every change
// through a storage.TaskRepository, so status survives a restart. Runner
// executes each submitted job exactly once on an ants worker pool and drives
// the tracker from the job's outcome.
package tasks
