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



// Package docrag wires document upload, ingestion and question answering
// into a single Service.
package docrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/openai"
	"github.com/poiesic/docrag/config"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/extract"
	"github.com/poiesic/docrag/fault"
	"github.com/poiesic/docrag/ingestion"
	"github.com/poiesic/docrag/objectstore"
	"github.com/poiesic/docrag/retrieval"
	"github.com/poiesic/docrag/search"
	"github.com/poiesic/docrag/splitter"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/badger"
	"github.com/poiesic/docrag/storage/qdrant"
	"github.com/poiesic/docrag/tasks"
)

// Service is the entry point used by transports and the CLI.
type Service struct {
	cfg      *config.Config
	backends []*badger.Backend
	chunks   storage.ChunkRepository
	provider ai.AIProvider
	files    objectstore.Store
	gateway  *retrieval.Gateway
	pipeline *ingestion.Pipeline
	importer *ingestion.Importer
	searcher *search.Searcher
	tracker  *tasks.Tracker
	runner   *tasks.Runner
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	provider  ai.AIProvider
	files     objectstore.Store
	extractor ingestion.Extractor
	inMemory  bool
}

// WithProvider replaces the OpenAI provider built from the configuration.
func WithProvider(p ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = p
	}
}

// WithObjectStore replaces the object store built from the configuration.
func WithObjectStore(s objectstore.Store) ServiceOption {
	return func(o *serviceOptions) {
		o.files = s
	}
}

// WithExtractor replaces the OCR result directory.
func WithExtractor(e ingestion.Extractor) ServiceOption {
	return func(o *serviceOptions) {
		o.extractor = e
	}
}

// WithInMemoryStorage keeps tasks and the badger index in memory.
func WithInMemoryStorage() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// NewService builds every component from cfg and prepares the vector index.
func NewService(ctx context.Context, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	s := &Service{cfg: cfg, logger: slog.Default().With("component", "service")}
	if err := s.open(ctx, options); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) open(ctx context.Context, options *serviceOptions) error {
	cfg := s.cfg

	taskBackend, err := s.openBackend(cfg.TaskDBPath, options.inMemory)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}

	switch cfg.VectorBackend {
	case config.BackendQdrant:
		s.chunks, err = qdrant.NewChunkRepository(qdrant.Config{
			URL:        cfg.VectorDBURL,
			APIKey:     cfg.VectorDBAPIKey,
			Collection: cfg.Collection,
			Timeout:    cfg.VectorDBTimeout,
		})
	default:
		indexBackend := taskBackend
		if cfg.VectorDBPath != cfg.TaskDBPath && !options.inMemory {
			if indexBackend, err = s.openBackend(cfg.VectorDBPath, false); err != nil {
				return fmt.Errorf("open vector index: %w", err)
			}
		}
		s.chunks, err = badger.NewChunkRepository(indexBackend, cfg.Collection)
	}
	if err != nil {
		return err
	}

	s.provider = options.provider
	if s.provider == nil {
		if s.provider, err = openai.NewProvider(cfg.AIConfig()); err != nil {
			return err
		}
	}

	s.files = options.files
	if s.files == nil {
		if s.files, err = newObjectStore(ctx, cfg); err != nil {
			return err
		}
	}

	extractor := options.extractor
	if extractor == nil {
		extractor = extract.NewOCRDirectory(cfg.OCRResultDir)
	}

	if s.gateway, err = retrieval.NewGateway(s.provider.Embedder(), s.provider.Generator(), s.chunks); err != nil {
		return err
	}
	if err := s.gateway.Init(ctx); err != nil {
		return err
	}

	tokenizer, err := s.tokenizer()
	if err != nil {
		return err
	}
	textSplitter, err := splitter.New(cfg.ChunkSize, cfg.ChunkOverlap, splitter.WithTokenizer(tokenizer))
	if err != nil {
		return err
	}
	if s.pipeline, err = ingestion.NewPipeline(textSplitter, s.gateway); err != nil {
		return err
	}
	if s.importer, err = ingestion.NewImporter(s.files, extractor, s.pipeline); err != nil {
		return err
	}
	if s.searcher, err = search.NewSearcher(s.gateway); err != nil {
		return err
	}

	if s.tracker, err = tasks.NewTracker(badger.NewTaskRepository(taskBackend)); err != nil {
		return err
	}
	s.runner, err = tasks.NewRunner(s.tracker, tasks.WithPoolSize(cfg.TaskWorkers))
	return err
}

func (s *Service) openBackend(path string, inMemory bool) (*badger.Backend, error) {
	if inMemory {
		path = ""
	}
	backend, err := badger.OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}
	s.backends = append(s.backends, backend)
	return backend, nil
}

// tokenizer returns the token counter chunk sizes are measured in. A model
// that cannot be loaded fails startup.
func (s *Service) tokenizer() (splitter.Tokenizer, error) {
	if s.cfg.TokenizerModel == "" {
		s.logger.Debug("no tokenizer model configured, using the simple tokenizer")
		return splitter.SimpleTokenizer{}, nil
	}
	t, err := splitter.NewTiktokenTokenizer(s.cfg.TokenizerModel)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM_TOKENIZER_MODEL: %w", config.ErrInvalidConfig, err)
	}
	return t, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	if !cfg.UsesMinio() {
		return objectstore.NewLocalStore(cfg.StorageLocalDir)
	}
	return objectstore.NewMinioStore(ctx, objectstore.MinioConfig{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		Secure:    cfg.StorageSecure,
	})
}

// Upload is one file of an upload request.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64 // -1 when unknown
	Body        io.Reader
}

// Upload stores files. Nothing is stored if any file has an unsupported
// content type.
func (s *Service) Upload(ctx context.Context, files ...Upload) ([]*objectstore.Object, error) {
	var rejected []string
	for _, f := range files {
		if !objectstore.IsAllowedContentType(f.ContentType) {
			rejected = append(rejected, f.Filename)
		}
	}
	if len(rejected) > 0 {
		s.logger.Error("unsupported file type", "files", rejected)
		return nil, fault.Unsupported(strings.Join(rejected, ", "))
	}

	objects := make([]*objectstore.Object, 0, len(files))
	for _, f := range files {
		obj, err := s.files.Upload(ctx, f.Filename, f.Body, f.Size, f.ContentType)
		if err != nil {
			return objects, fault.Ensure(err)
		}
		objects = append(objects, obj)
	}
	s.logger.Info("uploaded files", "count", len(objects))
	return objects, nil
}

// SubmitIngestion schedules the import of the file behind locator and
// returns the task id.
func (s *Service) SubmitIngestion(ctx context.Context, locator string) (string, error) {
	if _, err := objectstore.FilenameFromLocator(locator); err != nil {
		return "", fault.New(fault.StorageNotFound, "")
	}
	return s.runner.Submit(ctx, locator, func(ctx context.Context) error {
		_, err := s.importer.Import(ctx, locator)
		return err
	})
}

// TaskStatus returns the task with the given id. An unknown id yields an
// error wrapping tasks.ErrTaskNotFound.
func (s *Service) TaskStatus(ctx context.Context, id string) (*core.TaskRecord, error) {
	return s.tracker.Get(ctx, id)
}

// ListTasks returns every known ingestion task, oldest first.
func (s *Service) ListTasks(ctx context.Context) ([]*core.TaskRecord, error) {
	return s.tracker.List(ctx)
}

// WaitTasks blocks until every submitted ingestion has finished.
func (s *Service) WaitTasks() {
	s.runner.Wait()
}

// Ingest splits and indexes doc synchronously.
func (s *Service) Ingest(ctx context.Context, doc core.Document) error {
	return s.pipeline.Ingest(ctx, doc)
}

// Replace removes the indexed chunks of doc's source, then splits and
// indexes doc. It returns the number of chunks removed.
func (s *Service) Replace(ctx context.Context, doc core.Document) (int, error) {
	if err := core.ValidateDocument(&doc); err != nil {
		return 0, fault.Unsupported(err.Error())
	}
	removed, err := s.gateway.Clear(ctx, doc.Source)
	if err != nil {
		return 0, err
	}
	if err := s.pipeline.Ingest(ctx, doc); err != nil {
		return removed, err
	}
	s.logger.Info("replaced source", "source", doc.Source, "removed", removed)
	return removed, nil
}

// Answer answers question from the chunks of source. A topK of zero uses
// the configured default.
func (s *Service) Answer(ctx context.Context, question, source string, topK int) (string, error) {
	if topK == 0 {
		topK = s.cfg.TopK
	}
	return s.searcher.Answer(ctx, question, source, topK)
}

// ExtractResult is the answer to a question about an uploaded file.
type ExtractResult struct {
	Query    string `json:"query"`
	Locator  string `json:"signed_url"`
	Filename string `json:"filename"`
	Response string `json:"response"`
}

// Extract answers query from the ingested file behind locator. The file must
// still exist in object storage.
func (s *Service) Extract(ctx context.Context, locator, query string) (*ExtractResult, error) {
	name, err := objectstore.FilenameFromLocator(locator)
	if err != nil {
		return nil, fault.New(fault.StorageNotFound, "")
	}
	ok, err := s.files.Contains(ctx, name)
	if err != nil {
		return nil, fault.Ensure(err)
	}
	if !ok {
		s.logger.Error("file does not exist in object storage", "file", name)
		return nil, fault.New(fault.StorageNotFound, "")
	}

	answer, err := s.Answer(ctx, query, name, 0)
	if err != nil {
		return nil, err
	}
	return &ExtractResult{Query: query, Locator: locator, Filename: name, Response: answer}, nil
}

// Describe renders err for a caller, including the cause in debug mode.
func (s *Service) Describe(err error) fault.Report {
	return fault.Describe(err, s.cfg.Debug)
}

// Close waits for running tasks and releases every resource.
func (s *Service) Close() error {
	var errs []error
	if s.runner != nil {
		s.runner.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.chunks != nil {
		if err := s.chunks.Close(); err != nil {
			s.logger.Error("error closing chunk repository", "err", err)
			errs = append(errs, err)
		}
	}
	for _, b := range s.backends {
		if err := b.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
