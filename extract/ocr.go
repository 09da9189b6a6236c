package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fault"
	"github.com/poiesic/docrag/objectstore"
)

// ContentPath is the gjson path of the recognized text in an OCR result.
const ContentPath = "analyzeResult.content"

var (
	// ErrInvalidResult indicates a file that is not an OCR result.
	ErrInvalidResult = errors.New("invalid OCR result")

	// ErrNoContent indicates an OCR result without recognized text.
	ErrNoContent = errors.New("OCR result has no content")
)

// LoadOCRResult reads the OCR result at path. An empty source defaults to
// the base name of path.
func LoadOCRResult(path, source string) (core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Document{}, err
	}
	if source == "" {
		source = filepath.Base(path)
	}
	return ParseOCRResult(data, source)
}

// ParseOCRResult extracts the recognized text of an OCR result.
func ParseOCRResult(data []byte, source string) (core.Document, error) {
	if !gjson.ValidBytes(data) {
		return core.Document{}, ErrInvalidResult
	}
	content := gjson.GetBytes(data, ContentPath)
	if !content.Exists() || content.Type != gjson.String {
		return core.Document{}, fmt.Errorf("%w: %s missing", ErrNoContent, ContentPath)
	}
	return core.Document{Text: content.String(), Source: source}, nil
}

// OCRDirectory serves OCR results named after the original upload, so
// "<uuid>_report.pdf" is read from "<dir>/report.json".
type OCRDirectory struct {
	dir    string
	logger *slog.Logger
}

// NewOCRDirectory creates an extractor over dir.
func NewOCRDirectory(dir string) *OCRDirectory {
	return &OCRDirectory{dir: dir, logger: slog.Default().With("component", "ocr")}
}

// Extract returns the document recognized in storedName. The document's
// source is storedName. A file without an OCR result is StorageNotFound.
func (o *OCRDirectory) Extract(ctx context.Context, storedName string) (core.Document, error) {
	if err := ctx.Err(); err != nil {
		return core.Document{}, fault.NewUnexpected(err)
	}

	original := objectstore.OriginalName(storedName)
	name := strings.TrimSuffix(original, filepath.Ext(original))
	if name == "" || name != filepath.Base(name) {
		return core.Document{}, fault.New(fault.StorageNotFound, "")
	}
	path := filepath.Join(o.dir, name+".json")

	doc, err := LoadOCRResult(path, storedName)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		o.logger.Error("no OCR result for file", "file", storedName)
		return core.Document{}, fault.New(fault.StorageNotFound, "")
	case errors.Is(err, ErrInvalidResult), errors.Is(err, ErrNoContent):
		return core.Document{}, fault.Unsupported(err.Error())
	case err != nil:
		return core.Document{}, fault.Wrap(fault.StorageError, err)
	}

	o.logger.Debug("loaded OCR result", "file", storedName, "path", path, "bytes", len(doc.Text))
	return doc, nil
}
