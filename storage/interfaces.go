// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package storage

import (
	"context"

	"github.com/poiesic/docrag/core"
)

// ChunkRepository maps source identifiers onto the embedded chunks that belong
// to them. Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// EnsureCollection prepares the index for vectors of the given dimension.
	// Calling it on an existing collection is a no-op.
	EnsureCollection(ctx context.Context, dimensions int) error

	// UpsertRecords writes records, replacing any record with the same ID.
	UpsertRecords(ctx context.Context, records []*core.EmbeddingRecord) error

	// FindSimilar returns up to limit chunks of source ordered by decreasing
	// similarity to vector.
	FindSimilar(ctx context.Context, vector []float32, source string, limit int) ([]*core.SearchResult, error)

	// CountBySource returns the number of records stored for source.
	CountBySource(ctx context.Context, source string) (int, error)

	// DeleteBySource removes every record of source.
	DeleteBySource(ctx context.Context, source string) error

	// Close releases resources held by the repository.
	Close() error
}

// TaskRepository persists ingestion task records.
type TaskRepository interface {
	// SaveTask inserts or replaces a task record.
	SaveTask(ctx context.Context, task *core.TaskRecord) error

	// GetTask returns the task with the given id or ErrNotFound.
	GetTask(ctx context.Context, id string) (*core.TaskRecord, error)

	// ListTasks returns all task records ordered by creation time.
	ListTasks(ctx context.Context) ([]*core.TaskRecord, error)
}
