package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// TaskRepository persists ingestion task records in BadgerDB.
type TaskRepository struct {
	backend *Backend
}

var _ storage.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(backend *Backend) *TaskRepository {
	return &TaskRepository{backend: backend}
}

// SaveTask inserts or replaces a task record.
func (r *TaskRepository) SaveTask(ctx context.Context, task *core.TaskRecord) error {
	return r.backend.WithTransaction(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeTaskKey(task.Id), storage.MarshalTaskRecord(task))
	})
}

// GetTask returns the task with the given id or storage.ErrNotFound.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (*core.TaskRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var task *core.TaskRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTaskKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			task, err = storage.UnmarshalTaskRecord(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns all task records, oldest first.
func (r *TaskRepository) ListTasks(ctx context.Context) ([]*core.TaskRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var tasks []*core.TaskRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(taskPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				task, err := storage.UnmarshalTaskRecord(val)
				if err != nil {
					return err
				}
				tasks = append(tasks, task)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(tasks, func(a, b *core.TaskRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return tasks, nil
}
