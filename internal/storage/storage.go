// Package storage keeps uploaded media blobs and maps them to the public
// URLs recorded on media items.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

// PathMarker is the URL segment that precedes the escaped object key.
const PathMarker = "/o/"

var (
	// ErrNotFound is returned when no blob exists for a key.
	ErrNotFound = errors.New("blob not found")
	// ErrInvalidKey rejects keys that would escape their category prefix.
	ErrInvalidKey = errors.New("invalid blob key")
	// ErrNoObjectPath is returned when a URL carries no PathMarker segment.
	ErrNoObjectPath = errors.New("url does not reference a stored object")
)

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Size        int64
	ContentType string
}

// BlobStore is the object storage used for media files.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Key builds the storage key for a file uploaded into category.
func Key(category, fileName string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "", fmt.Errorf("%w: empty file name", ErrInvalidKey)
	}
	key := category + "/" + name
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// ValidateKey rejects empty segments, parent references and backslashes.
func ValidateKey(key string) error {
	if key == "" || strings.Contains(key, "\\") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// ObjectURL resolves the public URL for key below base (for example "/media").
func ObjectURL(base, key string) string {
	return strings.TrimRight(base, "/") + PathMarker + url.PathEscape(key) + "?alt=media"
}

// KeyFromURL recovers the storage key from a URL produced by ObjectURL by
// locating PathMarker and dropping the query string.
func KeyFromURL(raw string) (string, error) {
	idx := strings.Index(raw, PathMarker)
	if idx < 0 {
		return "", ErrNoObjectPath
	}
	escaped := raw[idx+len(PathMarker):]
	if cut := strings.IndexAny(escaped, "?#"); cut >= 0 {
		escaped = escaped[:cut]
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}
