package objectstore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/poiesic/docrag/fault"
)

// LocalStore keeps uploads in a directory. Locators are file:// URLs.
type LocalStore struct {
	dir    string
	logger *slog.Logger
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, storageFault(err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, storageFault(err)
	}
	return &LocalStore{dir: abs, logger: slog.Default().With("component", "local-store")}, nil
}

// Upload writes r to a temporary file and renames it into place.
func (s *LocalStore) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageFault(err)
	}
	stored := PrependUniqueID(filename)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, storageFault(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, storageFault(err)
	}
	if err := tmp.Close(); err != nil {
		return nil, storageFault(err)
	}
	target := filepath.Join(s.dir, stored)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, storageFault(err)
	}

	locator := (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String()
	s.logger.Info("stored file", "file", filename, "stored", stored)
	return &Object{Filename: filename, StoredName: stored, Locator: locator}, nil
}

// Contains reports whether storedName exists in the directory.
func (s *LocalStore) Contains(ctx context.Context, storedName string) (bool, error) {
	p, err := s.path(storedName)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, storageFault(err)
	}
	return true, nil
}

// Delete removes storedName if it exists.
func (s *LocalStore) Delete(ctx context.Context, storedName string) (bool, error) {
	p, err := s.path(storedName)
	if err != nil {
		return false, err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, storageFault(err)
	}
	return true, nil
}

func (s *LocalStore) path(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || storedName == "." || storedName == ".." {
		return "", fault.New(fault.StorageNotFound, "")
	}
	return filepath.Join(s.dir, storedName), nil
}
