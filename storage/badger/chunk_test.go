package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChunkRepo(t *testing.T, dim int) *ChunkRepository {
	t.Helper()
	chunks, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	require.NoError(t, chunks.EnsureCollection(context.Background(), dim))
	return chunks
}

func record(source string, index int, text string, vector ...float32) *core.EmbeddingRecord {
	return core.NewEmbeddingRecord(core.Chunk{Source: source, Text: text, Index: index}, vector)
}

func TestNewChunkRepository_InvalidCollection(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewChunkRepository(backend, "")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	_, err = NewChunkRepository(backend, "bad\x00name")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 3)

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, repo.EnsureCollection(ctx, 3))
		require.NoError(t, repo.EnsureCollection(ctx, 3))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		err := repo.EnsureCollection(ctx, 4)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})

	t.Run("invalid dimension", func(t *testing.T) {
		err := repo.EnsureCollection(ctx, 0)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestCollectionNotReady(t *testing.T) {
	chunks, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	err = chunks.UpsertRecords(ctx, []*core.EmbeddingRecord{record("s", 0, "t", 1, 0)})
	assert.ErrorIs(t, err, storage.ErrCollectionNotReady)

	_, err = chunks.FindSimilar(ctx, []float32{1, 0}, "s", 1)
	assert.ErrorIs(t, err, storage.ErrCollectionNotReady)
}

func TestUpsertAndFindSimilar(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 3)

	require.NoError(t, repo.UpsertRecords(ctx, []*core.EmbeddingRecord{
		record("doc1", 0, "alpha", 1, 0, 0),
		record("doc1", 1, "beta", 0, 1, 0),
		record("doc1", 2, "gamma", 0.9, 0.1, 0),
		record("doc2", 0, "delta", 1, 0, 0),
	}))

	results, err := repo.FindSimilar(ctx, []float32{1, 0, 0}, "doc1", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].Chunk.Text)
	assert.Equal(t, "gamma", results[1].Chunk.Text)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.Equal(t, "doc1", r.Chunk.Source)
	}
}

func TestFindSimilar_SourceIsolation(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 2)

	require.NoError(t, repo.UpsertRecords(ctx, []*core.EmbeddingRecord{
		record("doc", 0, "in doc", 0, 1),
		record("doc2", 0, "in doc2", 1, 0),
		record("do", 0, "in do", 1, 0),
	}))

	results, err := repo.FindSimilar(ctx, []float32{1, 0}, "doc", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "in doc", results[0].Chunk.Text)
}

func TestFindSimilar_UnknownSourceIsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 2)
	require.NoError(t, repo.UpsertRecords(ctx, []*core.EmbeddingRecord{record("doc", 0, "x", 1, 0)}))

	results, err := repo.FindSimilar(ctx, []float32{1, 0}, "never-ingested", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilar_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 2)

	_, err := repo.FindSimilar(ctx, []float32{1, 0}, "doc", 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = repo.FindSimilar(ctx, []float32{1, 0, 0}, "doc", 1)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = repo.FindSimilar(ctx, []float32{1, 0}, "", 1)
	assert.ErrorIs(t, err, core.ErrEmptySource)
}

func TestUpsertRecords_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 2)
	batch := []*core.EmbeddingRecord{
		record("doc", 0, "one", 1, 0),
		record("doc", 1, "two", 0, 1),
	}

	require.NoError(t, repo.UpsertRecords(ctx, batch))
	require.NoError(t, repo.UpsertRecords(ctx, batch))

	count, err := repo.CountBySource(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := repo.FindSimilar(ctx, []float32{1, 1}, "doc", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestUpsertRecords_Validation(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 2)

	err := repo.UpsertRecords(ctx, []*core.EmbeddingRecord{record("doc", 0, "x", 1, 0, 0)})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	err = repo.UpsertRecords(ctx, []*core.EmbeddingRecord{record("", 0, "x", 1, 0)})
	assert.ErrorIs(t, err, core.ErrEmptySource)

	assert.NoError(t, repo.UpsertRecords(ctx, nil))
}

func TestDeleteBySource(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 2)
	require.NoError(t, repo.UpsertRecords(ctx, []*core.EmbeddingRecord{
		record("a", 0, "a0", 1, 0),
		record("a", 1, "a1", 1, 0),
		record("b", 0, "b0", 1, 0),
	}))

	require.NoError(t, repo.DeleteBySource(ctx, "a"))

	count, err := repo.CountBySource(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	count, err = repo.CountBySource(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCollectionsAreSeparate(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	first, err := NewChunkRepository(backend, "first")
	require.NoError(t, err)
	second, err := NewChunkRepository(backend, "second")
	require.NoError(t, err)
	require.NoError(t, first.EnsureCollection(ctx, 2))
	require.NoError(t, second.EnsureCollection(ctx, 3))

	require.NoError(t, first.UpsertRecords(ctx, []*core.EmbeddingRecord{record("doc", 0, "x", 1, 0)}))

	count, err := second.CountBySource(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestConcurrentUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := newChunkRepo(t, 2)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				rec := record("doc", i, fmt.Sprintf("chunk %d", i), 1, float32(i))
				assert.NoError(t, repo.UpsertRecords(ctx, []*core.EmbeddingRecord{rec}))
				results, err := repo.FindSimilar(ctx, []float32{1, 0}, "doc", 3)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(results), 3)
			}
		}(w)
	}
	wg.Wait()

	count, err := repo.CountBySource(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 25, count)
}
