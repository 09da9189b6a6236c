package core

import (
	"fmt"
	"strings"
)

func ValidateSource(source string) error {
	if source == "" {
		return ErrEmptySource
	}
	if strings.ContainsRune(source, 0) {
		return ErrInvalidSource
	}
	return nil
}

func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if err := ValidateSource(doc.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyText)
	}

	return nil
}

func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if err := ValidateSource(chunk.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}

	if chunk.Overlap < 0 || chunk.Overlap > len(chunk.Text) {
		return fmt.Errorf("%w: overlap %d out of range", ErrInvalidChunk, chunk.Overlap)
	}

	return nil
}
