package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fault"
)

// DefaultTemplate is the grounding prompt. It receives the retrieved chunk
// texts as context and the user's question.
const DefaultTemplate = "Answer the question based only on the following context:\n{{.context}}\nQuestion: {{.question}}\n"

// Gateway retrieves chunks and generates text. retrieval.Gateway implements it.
type Gateway interface {
	Retrieve(ctx context.Context, query, source string, topK int) ([]core.Chunk, error)
	Generate(ctx context.Context, prompt string) (string, error)
}

// Searcher answers questions from the chunks of a single source.
type Searcher struct {
	gateway Gateway
	prompt  prompts.PromptTemplate
	logger  *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTemplate replaces DefaultTemplate. The template is a Go text/template
// using .context and .question.
func WithTemplate(template string) Option {
	return func(s *Searcher) error {
		if err := prompts.CheckValidTemplate(template, prompts.TemplateFormatGoTemplate, promptVariables); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
		}
		if !strings.Contains(template, ".context") || !strings.Contains(template, ".question") {
			return ErrInvalidTemplate
		}
		s.prompt = newPrompt(template)
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(gateway Gateway, opts ...Option) (*Searcher, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	s := &Searcher{
		gateway: gateway,
		prompt:  newPrompt(DefaultTemplate),
		logger:  slog.Default().With("component", "search"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

var promptVariables = []string{"context", "question"}

func newPrompt(template string) prompts.PromptTemplate {
	return prompts.NewPromptTemplate(template, promptVariables)
}

// Answer retrieves up to topK chunks of source, asks the generator the
// question grounded on them and returns its output verbatim.
func (s *Searcher) Answer(ctx context.Context, question, source string, topK int) (string, error) {
	chunks, err := s.gateway.Retrieve(ctx, question, source, topK)
	if err != nil {
		return "", fault.Ensure(err)
	}
	s.logger.Debug("retrieved context", "source", source, "chunks", len(chunks))

	prompt, err := s.Prompt(question, chunks)
	if err != nil {
		return "", fault.NewUnexpected(err)
	}

	answer, err := s.gateway.Generate(ctx, prompt)
	if err != nil {
		return "", fault.Ensure(err)
	}
	s.logger.Info("answered question", "source", source, "chunks", len(chunks))
	return answer, nil
}

// Prompt renders the grounding prompt for question over chunks.
func (s *Searcher) Prompt(question string, chunks []core.Chunk) (string, error) {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	return s.prompt.Format(map[string]any{
		"context":  strings.Join(texts, "\n\n"),
		"question": question,
	})
}
