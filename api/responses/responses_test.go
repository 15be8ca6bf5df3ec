package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteSuccessStatusWritesRawJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"hello": "world"}, decode(t, w))
}

func TestWriteErrorInsufficientStockCarriesFields(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInsufficientStock, "Insufficient stock").WithField("current_stock", 5)
	WriteError(context.Background(), nil, w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	assert.Equal(t, "Insufficient stock", body["message"])
	assert.Equal(t, "Insufficient stock", body["error"])
	assert.EqualValues(t, 5, body["current_stock"])
}

func TestWriteErrorNotFoundKeepsCauseOutOfBody(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})

	w := httptest.NewRecorder()
	WriteError(context.Background(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, errors.New("record not found"), "Item not found"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Item not found", body["message"])
	assert.Equal(t, "Item not found", body["error"])
	assert.NotContains(t, body, "details")
	assert.NotContains(t, w.Body.String(), "record not found")

	assert.Contains(t, buf.String(), "request.rejected")
	assert.Contains(t, buf.String(), "record not found")
}

func TestWriteErrorFallsBackToPublicMessageWithoutTypedMessage(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, pkgerrors.Wrap(pkgerrors.CodeConflict, errors.New("UNIQUE constraint failed: items.sku"), ""))

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "conflict detected", body["message"])
	assert.Equal(t, "conflict detected", body["error"])
	assert.NotContains(t, w.Body.String(), "UNIQUE")
}

func TestWriteErrorValidationIncludesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]string{"quantity": "must be at least 1"})
	WriteError(context.Background(), nil, w, err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, map[string]any{"quantity": "must be at least 1"}, body["details"])
}

func TestWriteFailureHidesInternalCause(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})

	w := httptest.NewRecorder()
	cause := errors.New("pq: relation \"items\" does not exist")
	WriteFailure(context.Background(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "db: insert"), "Failed to process transaction")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "Failed to process transaction", body["message"])
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, w.Body.String(), "relation")

	assert.Contains(t, buf.String(), "request.error")
	assert.Contains(t, buf.String(), "relation")
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "internal server error", body["message"])
}
