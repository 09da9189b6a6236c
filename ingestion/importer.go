package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fault"
	"github.com/poiesic/docrag/objectstore"
)

// Resolver reports whether an uploaded file still exists.
// objectstore.Store implements it.
type Resolver interface {
	Contains(ctx context.Context, storedName string) (bool, error)
}

// Extractor produces the raw text of an uploaded file.
type Extractor interface {
	Extract(ctx context.Context, storedName string) (core.Document, error)
}

// Importer ingests uploaded files given their storage locator.
type Importer struct {
	files     Resolver
	extractor Extractor
	pipeline  *Pipeline
	logger    *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(files Resolver, extractor Extractor, pipeline *Pipeline) (*Importer, error) {
	if files == nil {
		return nil, ErrStoreRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	return &Importer{
		files:     files,
		extractor: extractor,
		pipeline:  pipeline,
		logger:    slog.Default().With("component", "importer"),
	}, nil
}

// Import resolves locator to its stored file, extracts the file's text and
// ingests it with the stored file name as source. It returns that source.
func (i *Importer) Import(ctx context.Context, locator string) (string, error) {
	name, err := objectstore.FilenameFromLocator(locator)
	if err != nil {
		return "", fault.New(fault.StorageNotFound, "")
	}
	i.logger.Debug("requested file", "file", name)

	ok, err := i.files.Contains(ctx, name)
	if err != nil {
		return "", fault.Ensure(err)
	}
	if !ok {
		i.logger.Error("file not found in object storage", "file", name)
		return "", fault.New(fault.StorageNotFound, "")
	}

	doc, err := i.extractor.Extract(ctx, name)
	if err != nil {
		if _, ok := fault.KindOf(err); ok {
			return "", err
		}
		return "", fault.NewUnexpected(err)
	}
	doc.Source = name

	if err := i.pipeline.Ingest(ctx, doc); err != nil {
		return "", err
	}
	i.logger.Info("imported file", "file", name)
	return name, nil
}
