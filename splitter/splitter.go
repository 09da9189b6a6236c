package splitter

import (
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docrag/core"
)

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", "。", ". ", "! ", "? ", " "}

// Splitter cuts documents into chunks of at most chunkSize tokens where
// consecutive chunks share up to chunkOverlap tokens.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	tokenizer    Tokenizer
	separators   []string
	logger       *slog.Logger
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithTokenizer sets the tokenizer used to measure chunks.
func WithTokenizer(t Tokenizer) Option {
	return func(s *Splitter) error {
		s.tokenizer = t
		return nil
	}
}

// WithSeparators replaces DefaultSeparators.
func WithSeparators(seps ...string) Option {
	return func(s *Splitter) error {
		s.separators = seps
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) error {
		s.logger = logger
		return nil
	}
}

// New creates a Splitter. Invalid sizes are rejected here rather than at split time.
func New(chunkSize, chunkOverlap int, opts ...Option) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	s := &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		tokenizer:    SimpleTokenizer{},
		separators:   DefaultSeparators,
		logger:       slog.Default().With("component", "splitter"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type unit struct {
	text   string
	offset int
}

// Split cuts doc into chunks carrying doc's source. An empty text yields no chunks.
func (s *Splitter) Split(doc core.Document) []core.Chunk {
	if doc.Text == "" {
		return nil
	}

	var units []unit
	offset := 0
	for _, piece := range s.pieces(doc.Text, 0) {
		units = append(units, unit{text: piece, offset: offset})
		offset += len(piece)
	}

	var (
		chunks  []core.Chunk
		window  []unit
		carried int
	)
	emit := func() {
		chunks = append(chunks, core.Chunk{
			Source:  doc.Source,
			Text:    join(window),
			Index:   len(chunks),
			Offset:  window[0].offset,
			Overlap: carried,
		})
	}

	for _, u := range units {
		if len(window) > 0 && s.tokenizer.Count(join(window)+u.text) > s.chunkSize {
			emit()
			window = s.overlapTail(window, u)
			carried = len(join(window))
		}
		window = append(window, u)
	}
	if len(window) > 0 {
		emit()
	}

	s.logger.Debug("split document", "source", doc.Source, "units", len(units), "chunks", len(chunks))
	return chunks
}

// overlapTail returns the trailing units of window to repeat in the next
// chunk. They fit in chunkOverlap tokens and leave room for next.
func (s *Splitter) overlapTail(window []unit, next unit) []unit {
	if s.chunkOverlap == 0 {
		return nil
	}
	start := len(window)
	for start > 0 && s.tokenizer.Count(join(window[start-1:])) <= s.chunkOverlap {
		start--
	}
	tail := append([]unit(nil), window[start:]...)
	for len(tail) > 0 && s.tokenizer.Count(join(tail)+next.text) > s.chunkSize {
		tail = tail[1:]
	}
	return tail
}

// pieces breaks text into consecutive pieces of at most chunkSize tokens.
// Concatenating the result gives back text.
func (s *Splitter) pieces(text string, sepIdx int) []string {
	if s.tokenizer.Count(text) <= s.chunkSize {
		return []string{text}
	}
	for i := sepIdx; i < len(s.separators); i++ {
		sep := s.separators[i]
		if sep == "" || !strings.Contains(text, sep) {
			continue
		}
		var out []string
		for _, part := range strings.SplitAfter(text, sep) {
			if part == "" {
				continue
			}
			out = append(out, s.pieces(part, i+1)...)
		}
		return out
	}
	return s.hardSplit(text)
}

// hardSplit slices text on rune boundaries into the longest prefixes that fit.
// A single rune that alone exceeds chunkSize becomes its own piece.
func (s *Splitter) hardSplit(text string) []string {
	var out []string
	for text != "" {
		bounds := runeBounds(text)
		n := sort.Search(len(bounds), func(i int) bool {
			return s.tokenizer.Count(text[:bounds[i]]) > s.chunkSize
		})
		if n == 0 {
			n = 1
		}
		cut := bounds[n-1]
		out = append(out, text[:cut])
		text = text[cut:]
	}
	return out
}

// runeBounds returns the end offset of each rune in text.
func runeBounds(text string) []int {
	bounds := make([]int, 0, utf8.RuneCountInString(text))
	for i := range text {
		if i > 0 {
			bounds = append(bounds, i)
		}
	}
	return append(bounds, len(text))
}

func join(units []unit) string {
	if len(units) == 1 {
		return units[0].text
	}
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.text)
	}
	return b.String()
}

// Reassemble rebuilds the text the chunks were split from. Chunks must belong
// to one document and be in index order.
func Reassemble(chunks []core.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text[c.Overlap:])
	}
	return b.String()
}
