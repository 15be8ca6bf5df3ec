// Package images stores catalog images in the configured blob store.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/metrics"
	"github.com/angelmondragon/pos-inventory-backend/pkg/storage"
)

const objectPrefix = "items"

var allowedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// File is an uploaded image before it reaches the blob store.
type File struct {
	Filename string
	Body     io.Reader
}

type Service struct {
	store    storage.BlobStore
	maxBytes int64
	logg     *logger.Logger
	metrics  *metrics.CatalogMetrics
}

func NewService(store storage.BlobStore, maxBytes int64, logg *logger.Logger, m *metrics.CatalogMetrics) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{store: store, maxBytes: maxBytes, logg: logg, metrics: m}, nil
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Store validates the image and uploads it under a fresh object name.
func (s *Service) Store(ctx context.Context, file File) (string, error) {
	if file.Body == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image is required").
			WithDetails(map[string]string{"image": "is required"})
	}

	data, err := io.ReadAll(io.LimitReader(file.Body, s.maxBytes+1))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read image")
	}
	if len(data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image is empty").
			WithDetails(map[string]string{"image": "is required"})
	}
	if int64(len(data)) > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image too large").
			WithDetails(map[string]string{"image": fmt.Sprintf("must not be larger than %d kilobytes", s.maxBytes/1024)})
	}

	detected := mimetype.Detect(data)
	if !isAllowed(detected) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").
			WithDetails(map[string]string{"image": "must be a file of type: png, jpeg, gif, webp"})
	}

	name := path.Join(objectPrefix, uuid.NewString()+detected.Extension())
	url, err := s.store.Store(ctx, name, detected.String(), bytes.NewReader(data))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to store image")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"image_url": url, "content_type": detected.String(), "bytes": len(data)})
	s.logg.Info(ctx, "image.stored")
	return url, nil
}

func isAllowed(detected *mimetype.MIME) bool {
	for _, t := range allowedTypes {
		if detected.Is(t) {
			return true
		}
	}
	return false
}

// Release deletes the blob behind url. Failures are logged and counted, never
// returned, so callers can release on any path.
func (s *Service) Release(ctx context.Context, url string) {
	if url == "" || !s.store.Owns(url) {
		return
	}
	ctx = context.WithoutCancel(ctx)
	err := s.store.Delete(ctx, url)
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	s.metrics.ObserveImageRelease(err)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "image_url", url), "image.release_failed", err)
		return
	}
	s.logg.Info(s.logg.WithField(ctx, "image_url", url), "image.released")
}

// Acquire stores file and returns a lease that releases the blob on Close
// unless Keep was called first. A nil file yields a nil lease.
func (s *Service) Acquire(ctx context.Context, file *File) (*Lease, error) {
	if file == nil {
		return nil, nil
	}
	url, err := s.Store(ctx, *file)
	if err != nil {
		return nil, err
	}
	return &Lease{url: url, release: s.Release}, nil
}

// Lease scopes a stored blob to one catalog write.
type Lease struct {
	url     string
	release func(context.Context, string)
	once    sync.Once
	kept    bool
}

// URL is "" on a nil lease.
func (l *Lease) URL() string {
	if l == nil {
		return ""
	}
	return l.url
}

// Keep marks the blob as referenced by committed state.
func (l *Lease) Keep() {
	if l != nil {
		l.kept = true
	}
}

// Close releases the blob unless kept. Safe on a nil lease and idempotent.
func (l *Lease) Close(ctx context.Context) {
	if l == nil {
		return
	}
	l.once.Do(func() {
		if !l.kept {
			l.release(ctx, l.url)
		}
	})
}
