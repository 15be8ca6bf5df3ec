package local

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pos-inventory-backend/pkg/storage"
)

func TestStoreAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "http://localhost:8080/storage/images/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Store(ctx, "items/abc.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/storage/images/items/abc.png", url)
	assert.True(t, store.Owns(url))

	data, err := os.ReadFile(filepath.Join(dir, "items", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = store.Store(ctx, "items/abc.png", "image/png", strings.NewReader("again"))
	assert.Error(t, err, "existing objects are never overwritten")

	require.NoError(t, store.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "items", "abc.png"))
	assert.True(t, os.IsNotExist(err))

	assert.True(t, errors.Is(store.Delete(ctx, url), storage.ErrNotFound))
}

func TestDeleteIgnoresForeignURLs(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost:8080/storage/images")
	require.NoError(t, err)

	assert.False(t, store.Owns("https://example.com/cat.png"))
	assert.NoError(t, store.Delete(context.Background(), "https://example.com/cat.png"))
}

func TestStoreRejectsEscapingNames(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost/img")
	require.NoError(t, err)

	_, err = store.Store(context.Background(), "../escape.png", "image/png", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestFileHandlerServesObjectsButNotListings(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost:8080/storage/images")
	require.NoError(t, err)
	_, err = store.Store(context.Background(), "items/tea.png", "image/png", strings.NewReader("tea-bytes"))
	require.NoError(t, err)

	handler := http.StripPrefix("/storage/images/", store.FileHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/storage/images/items/tea.png", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "tea-bytes", resp.Body.String())

	for _, path := range []string{"/storage/images/", "/storage/images/items/", "/storage/images/items", "/storage/images/missing.png"} {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, resp.Code, path)
		assert.NotContains(t, resp.Body.String(), "tea.png", path)
	}
}
