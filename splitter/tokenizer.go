package splitter

import (
	"fmt"
	"regexp"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer measures text length in tokens.
type Tokenizer interface {
	Count(text string) int
}

// TiktokenTokenizer counts tokens with the BPE encoding of an OpenAI model.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the encoding used by model. The encoding files are
// downloaded on first use unless they are already cached.
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("loading encoding for %s: %w", model, err)
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

var simpleTokenPattern = regexp.MustCompile(`\p{L}+|\p{N}+|[^\s\p{L}\p{N}]`)

// SimpleTokenizer approximates BPE counts offline: a run of letters, a run of
// digits and each punctuation rune count as one token. Whitespace is free.
type SimpleTokenizer struct{}

func (SimpleTokenizer) Count(text string) int {
	return len(simpleTokenPattern.FindAllStringIndex(text, -1))
}
