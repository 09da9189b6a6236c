package objectstore

import (
	"context"
	"io"
)

// Object describes one stored upload.
type Object struct {
	Filename   string // Name the file was uploaded with
	StoredName string // Unique name inside the store
	Locator    string // URL handed back to the caller
}

// Store keeps uploaded files.
type Store interface {
	// Upload stores r under a unique name derived from filename. size may be
	// -1 when unknown.
	Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (*Object, error)

	// Contains reports whether storedName exists.
	Contains(ctx context.Context, storedName string) (bool, error)

	// Delete removes storedName. It reports false if there was nothing to delete.
	Delete(ctx context.Context, storedName string) (bool, error)
}
