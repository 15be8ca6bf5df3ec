// Package local stores images on the API host's disk and serves them from a
// static route.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/pos-inventory-backend/pkg/storage"
)

type Store struct {
	dir     string
	baseURL string
}

func New(dir, publicBaseURL string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("local storage dir is required")
	}
	if publicBaseURL == "" {
		return nil, errors.New("local storage public base url is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Dir is the root served by the static file route.
func (s *Store) Dir() string { return s.dir }

// FileHandler serves stored objects. Directories answer 404 so the object
// names cannot be listed.
func (s *Store) FileHandler() http.Handler {
	return http.FileServer(filesOnly{root: http.Dir(s.dir)})
}

type filesOnly struct {
	root http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

func (s *Store) Store(ctx context.Context, name, _ string, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.pathFor(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir for %q: %w", name, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", name, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close %q: %w", name, err)
	}
	return s.baseURL + "/" + filepath.ToSlash(name), nil
}

func (s *Store) Delete(ctx context.Context, publicURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := storage.ObjectName(s.baseURL, publicURL)
	if name == "" {
		return nil
	}
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("remove %q: %w", name, err)
	}
	return nil
}

func (s *Store) Owns(publicURL string) bool {
	return storage.ObjectName(s.baseURL, publicURL) != ""
}

func (s *Store) pathFor(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.dir, clean), nil
}
