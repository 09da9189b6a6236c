package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fault"
	"github.com/poiesic/docrag/splitter"
)

// Indexer embeds and stores chunks. retrieval.Gateway implements it.
type Indexer interface {
	Upsert(ctx context.Context, chunks []core.Chunk) error
}

// Pipeline splits documents and hands their chunks to an Indexer.
type Pipeline struct {
	splitter *splitter.Splitter
	indexer  Indexer
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(s *splitter.Splitter, indexer Indexer, opts ...Option) (*Pipeline, error) {
	if s == nil {
		return nil, ErrSplitterRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}

	p := &Pipeline{
		splitter: s,
		indexer:  indexer,
		logger:   slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Ingest splits doc and upserts its chunks. A document without source or
// text is rejected as UnsupportedInput before any external call. Faults from
// the indexer are returned unchanged.
func (p *Pipeline) Ingest(ctx context.Context, doc core.Document) error {
	if err := core.ValidateDocument(&doc); err != nil {
		return fault.Unsupported(err.Error())
	}

	chunks := p.splitter.Split(doc)
	p.logger.Debug("split document", "source", doc.Source, "chunks", len(chunks))

	if err := p.indexer.Upsert(ctx, chunks); err != nil {
		p.logger.Error("ingestion failed", "source", doc.Source, "err", err)
		return fault.Ensure(err)
	}

	p.logger.Info("ingested document", "source", doc.Source, "chunks", len(chunks))
	return nil
}
