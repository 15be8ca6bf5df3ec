// Package storage defines the blob store used for catalog images.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned when an owned object no longer exists.
var ErrNotFound = errors.New("storage: object not found")

// BlobStore stores uploaded files and hands back public URLs.
// Delete ignores URLs the store does not own so callers can release any
// image reference, including ones entered by hand.
type BlobStore interface {
	Store(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, publicURL string) error
	Owns(publicURL string) bool
}

// ObjectName returns the path of publicURL below base, or "" when the URL is
// not under base.
func ObjectName(base, publicURL string) string {
	base = strings.TrimRight(base, "/") + "/"
	if base == "/" || !strings.HasPrefix(publicURL, base) {
		return ""
	}
	name := strings.TrimPrefix(publicURL, base)
	if name == "" || strings.Contains(name, "..") {
		return ""
	}
	return name
}
