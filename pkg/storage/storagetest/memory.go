// Package storagetest provides an in-memory BlobStore for tests.
package storagetest

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/angelmondragon/pos-inventory-backend/pkg/storage"
)

const BaseURL = "https://blobs.test"

type Memory struct {
	mu        sync.Mutex
	objects   map[string][]byte
	StoreErr  error
	DeleteErr error
	Deleted   []string
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}}
}

func (m *Memory) Store(_ context.Context, name, _ string, body io.Reader) (string, error) {
	if m.StoreErr != nil {
		return "", m.StoreErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[name]; exists {
		return "", errors.New("object exists")
	}
	m.objects[name] = data
	return BaseURL + "/" + name, nil
}

func (m *Memory) Delete(_ context.Context, publicURL string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	name := storage.ObjectName(BaseURL, publicURL)
	if name == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, publicURL)
	if _, ok := m.objects[name]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, name)
	return nil
}

func (m *Memory) Owns(publicURL string) bool {
	return storage.ObjectName(BaseURL, publicURL) != ""
}

// URLs lists the stored objects as public URLs, sorted.
func (m *Memory) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for name := range m.objects {
		out = append(out, BaseURL+"/"+name)
	}
	sort.Strings(out)
	return out
}

// PNG is a minimal payload that sniffs as image/png.
var PNG = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
