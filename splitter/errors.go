package splitter

import "errors"

var (
	// ErrInvalidChunkSize indicates a chunk size that is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap indicates an overlap that is negative or not smaller
	// than the chunk size.
	ErrInvalidOverlap = errors.New("chunk overlap must be in [0, chunk size)")
)
