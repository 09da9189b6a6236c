package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// ChunkRepository stores embedded chunks of one collection in BadgerDB and
// answers similarity searches by scanning the chunks of the requested source.
type ChunkRepository struct {
	backend    *Backend
	collection string
	logger     *slog.Logger
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a repository for collection on backend.
func NewChunkRepository(backend *Backend, collection string) (*ChunkRepository, error) {
	if collection == "" || strings.ContainsRune(collection, 0) {
		return nil, fmt.Errorf("%w: invalid collection name %q", storage.ErrInvalidQuery, collection)
	}
	return &ChunkRepository{
		backend:    backend,
		collection: collection,
		logger:     slog.Default().With("component", "badger-chunks", "collection", collection),
	}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *ChunkRepository) Close() error {
	return nil
}

// EnsureCollection records the collection's vector size on first use.
// Later calls with the same size do nothing.
func (r *ChunkRepository) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", storage.ErrInvalidQuery)
	}
	return r.backend.WithTransaction(ctx, func(tx *badger.Txn) error {
		existing, err := r.dimensions(tx)
		if err != nil {
			return err
		}
		if existing == dimensions {
			return nil
		}
		if existing != 0 {
			return fmt.Errorf("%w: collection %s has %d dimensions, requested %d",
				storage.ErrDimensionMismatch, r.collection, existing, dimensions)
		}
		buf := binary.BigEndian.AppendUint32(nil, uint32(dimensions))
		if err := tx.Set(makeDimensionKey(r.collection), buf); err != nil {
			return err
		}
		r.logger.Info("created collection", "dimensions", dimensions)
		return nil
	})
}

// UpsertRecords writes records keyed by their content ID, replacing earlier
// versions of the same chunk.
func (r *ChunkRepository) UpsertRecords(ctx context.Context, records []*core.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dim, err := r.readDimensions()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := core.ValidateSource(rec.Source); err != nil {
			return err
		}
		if len(rec.Vector) != dim {
			return fmt.Errorf("%w: record has %d dimensions, collection has %d",
				storage.ErrDimensionMismatch, len(rec.Vector), dim)
		}
	}

	err = r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, rec := range records {
			key := makeChunkKey(r.collection, rec.Source, rec.Id)
			if err := wb.Set(key, storage.MarshalEmbeddingRecord(rec)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Debug("upserted records", "count", len(records))
	return nil
}

// FindSimilar returns up to limit chunks of source ordered by decreasing
// cosine similarity to vector.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, source string, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim, err := r.readDimensions()
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			storage.ErrDimensionMismatch, len(vector), dim)
	}

	var results []*core.SearchResult
	err = r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSourcePrefix(r.collection, source)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalEmbeddingRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record.Source != source {
				continue
			}
			results = append(results, &core.SearchResult{
				Chunk: record.Chunk(),
				Score: cosineSimilarity(vector, record.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return a.Chunk.Index - b.Chunk.Index
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CountBySource returns the number of chunks stored for source.
func (r *ChunkRepository) CountBySource(ctx context.Context, source string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	keys, err := r.sourceKeys(source)
	return len(keys), err
}

// DeleteBySource removes every chunk of source.
func (r *ChunkRepository) DeleteBySource(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys, err := r.sourceKeys(source)
	if err != nil {
		return err
	}
	err = r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, key := range keys {
			if err := wb.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Debug("deleted source", "source", source, "count", len(keys))
	return nil
}

func (r *ChunkRepository) sourceKeys(source string) ([][]byte, error) {
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeSourcePrefix(r.collection, source)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	return keys, err
}

func (r *ChunkRepository) readDimensions() (int, error) {
	var dim int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		dim, err = r.dimensions(tx)
		return err
	}, false)
	if err != nil {
		return 0, err
	}
	if dim == 0 {
		return 0, fmt.Errorf("%w: %s", storage.ErrCollectionNotReady, r.collection)
	}
	return dim, nil
}

// dimensions returns the stored vector size, or 0 if the collection does not exist.
func (r *ChunkRepository) dimensions(tx *badger.Txn) (int, error) {
	item, err := tx.Get(makeDimensionKey(r.collection))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var dim int
	err = item.Value(func(val []byte) error {
		if len(val) != 4 {
			return fmt.Errorf("%w: dimension value has %d bytes", storage.ErrTruncatedData, len(val))
		}
		dim = int(binary.BigEndian.Uint32(val))
		return nil
	})
	return dim, err
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero.
func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
