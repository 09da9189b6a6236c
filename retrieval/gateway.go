package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fault"
	"github.com/poiesic/docrag/storage"
)

// Gateway embeds chunks and queries, stores and searches them in the chunk
// index and forwards prompts to the generator.
type Gateway struct {
	embedder  ai.Embedder
	generator ai.Generator
	chunks    storage.ChunkRepository
	logger    *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// NewGateway creates a Gateway over the given services.
func NewGateway(embedder ai.Embedder, generator ai.Generator, chunks storage.ChunkRepository, opts ...Option) (*Gateway, error) {
	if embedder == nil || generator == nil || chunks == nil {
		return nil, errors.New("retrieval: embedder, generator and chunk repository are required")
	}
	g := &Gateway{
		embedder:  embedder,
		generator: generator,
		chunks:    chunks,
		logger:    slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Init prepares the index for the embedder's vector size. It is safe to call
// on every start.
func (g *Gateway) Init(ctx context.Context) error {
	if err := g.chunks.EnsureCollection(ctx, g.embedder.Dimensions()); err != nil {
		return g.fail("init", indexError(err))
	}
	g.logger.Debug("index ready", "dimensions", g.embedder.Dimensions())
	return nil
}

// Upsert embeds every chunk and writes it to the index with its source.
func (g *Gateway) Upsert(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		if err := core.ValidateChunk(&chunks[i]); err != nil {
			return fault.New(fault.UnsupportedInput, err.Error())
		}
		texts[i] = chunks[i].Text
	}

	vectors, err := g.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return g.fail("embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return g.fail("embed chunks", fmt.Errorf("%w: %d vectors for %d chunks", ai.ErrProvider, len(vectors), len(chunks)))
	}

	records := make([]*core.EmbeddingRecord, len(chunks))
	for i := range chunks {
		records[i] = core.NewEmbeddingRecord(chunks[i], vectors[i])
	}
	if err := g.chunks.UpsertRecords(ctx, records); err != nil {
		return g.fail("upsert", indexError(err))
	}

	g.logger.Debug("upserted chunks", "count", len(chunks), "source", chunks[0].Source)
	return nil
}

// Clear removes every chunk of source from the index and returns how many
// were removed.
func (g *Gateway) Clear(ctx context.Context, source string) (int, error) {
	if err := core.ValidateSource(source); err != nil {
		return 0, fault.New(fault.UnsupportedInput, err.Error())
	}
	count, err := g.chunks.CountBySource(ctx, source)
	if err != nil {
		return 0, g.fail("count", indexError(err))
	}
	if count == 0 {
		return 0, nil
	}
	if err := g.chunks.DeleteBySource(ctx, source); err != nil {
		return 0, g.fail("delete", indexError(err))
	}
	g.logger.Debug("cleared source", "source", source, "count", count)
	return count, nil
}

// Retrieve returns at most topK chunks of source ordered by decreasing
// similarity to query. A source without chunks yields an empty result.
func (g *Gateway) Retrieve(ctx context.Context, query, source string, topK int) ([]core.Chunk, error) {
	if topK <= 0 {
		return nil, fault.New(fault.UnsupportedInput, "top_k must be positive")
	}
	if err := core.ValidateSource(source); err != nil {
		return nil, fault.New(fault.UnsupportedInput, err.Error())
	}

	vector, err := g.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, g.fail("embed query", err)
	}
	results, err := g.chunks.FindSimilar(ctx, vector, source, topK)
	if err != nil {
		return nil, g.fail("search", indexError(err))
	}

	chunks := make([]core.Chunk, 0, min(len(results), topK))
	for _, r := range results {
		if r.Chunk.Source != source {
			continue
		}
		chunks = append(chunks, r.Chunk)
		if len(chunks) == topK {
			break
		}
	}
	g.logger.Debug("retrieved chunks", "source", source, "count", len(chunks))
	return chunks, nil
}

// Generate returns the generator's output for prompt.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.generator.Generate(ctx, prompt)
	if err != nil {
		return "", g.fail("generate", err)
	}
	return out, nil
}

// fail translates err, which must be non-nil, and logs the result.
func (g *Gateway) fail(op string, err error) error {
	f := fault.Translate(err)
	g.logger.Error("provider call failed", "op", op, "kind", f.Kind.String(), "err", err)
	return f
}

// indexError marks err as coming from the vector index.
func indexError(err error) error {
	if errors.Is(err, storage.ErrIndex) {
		return err
	}
	return fmt.Errorf("%w: %w", storage.ErrIndex, err)
}
