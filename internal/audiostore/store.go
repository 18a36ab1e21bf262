// Package audiostore persists synthesized audio and hands back a location the
// client can fetch it from: a URL path served by this process (LocalStore) or
// a presigned object-storage URL (MinioStore).
package audiostore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Store saves audio objects under caller-chosen keys.
type Store interface {
	// Save writes r under key and returns where clients can fetch it.
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Delete removes the object; a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// ErrInvalidKey is returned for keys that are empty, absolute, or escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// cleanKey validates key and returns it in canonical slash form.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	c := path.Clean(key)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidKey
	}
	return c, nil
}
