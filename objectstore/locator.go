package objectstore

import (
	"errors"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidLocator indicates a locator without a file name.
var ErrInvalidLocator = errors.New("locator does not name a file")

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/tiff":      true,
}

// IsAllowedContentType reports whether files of mimeType may be uploaded.
// Parameters such as charset are ignored.
func IsAllowedContentType(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return allowedContentTypes[strings.ToLower(mediaType)]
}

// FilenameFromLocator returns the stored name a locator points at: the last
// path segment of the URL-unescaped locator.
func FilenameFromLocator(locator string) (string, error) {
	unescaped, err := url.PathUnescape(locator)
	if err != nil {
		unescaped = locator
	}
	u, err := url.Parse(unescaped)
	if err != nil {
		return "", errors.Join(ErrInvalidLocator, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", ErrInvalidLocator
	}
	return name, nil
}

// PrependUniqueID returns the base name of filename prefixed with a random UUID.
func PrependUniqueID(filename string) string {
	return uuid.NewString() + "_" + path.Base(strings.ReplaceAll(filename, "\\", "/"))
}

// OriginalName strips the prefix added by PrependUniqueID. Names without
// the prefix are returned unchanged.
func OriginalName(storedName string) string {
	const prefixLen = 36
	if len(storedName) > prefixLen+1 && storedName[prefixLen] == '_' {
		if _, err := uuid.Parse(storedName[:prefixLen]); err == nil {
			return storedName[prefixLen+1:]
		}
	}
	return storedName
}
