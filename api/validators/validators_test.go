package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
)

type saleBody struct {
	ItemID   int64 `json:"item_id" validate:"required,min=1"`
	Quantity int   `json:"quantity" validate:"min=1"`
}

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
}

func TestDecodeJSONBodyValid(t *testing.T) {
	var dest saleBody
	require.NoError(t, DecodeJSONBody(newRequest(`{"item_id":3,"quantity":2}`), &dest))
	assert.Equal(t, saleBody{ItemID: 3, Quantity: 2}, dest)
}

func TestDecodeJSONBodyFieldErrors(t *testing.T) {
	var dest saleBody
	err := DecodeJSONBody(newRequest(`{"item_id":3,"quantity":0}`), &dest)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"quantity": "must be at least 1"}, typed.Details())
}

func TestDecodeJSONBodyTypeMismatch(t *testing.T) {
	var dest saleBody
	err := DecodeJSONBody(newRequest(`{"item_id":3,"quantity":"two"}`), &dest)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]string{"quantity": "must be a number"}, typed.Details())
}

func TestDecodeJSONRejectsUnknownFieldsAndEmptyBody(t *testing.T) {
	var dest saleBody
	assert.True(t, pkgerrors.IsCode(DecodeJSON(newRequest(`{"item_id":1,"qty":1}`), &dest), pkgerrors.CodeValidation))
	assert.True(t, pkgerrors.IsCode(DecodeJSON(newRequest(``), &dest), pkgerrors.CodeValidation))
}

func TestDecodeJSONRejectsTrailingContent(t *testing.T) {
	for _, body := range []string{
		`{"item_id":1,"quantity":1}{"item_id":2,"quantity":5}`,
		`{"item_id":1,"quantity":1} trailing`,
		`{"item_id":1,"quantity":1}]`,
	} {
		var dest saleBody
		err := DecodeJSON(newRequest(body), &dest)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, body)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code(), body)
		assert.Equal(t, map[string]string{"body": "must contain a single JSON object"}, typed.Details(), body)
	}

	var dest saleBody
	require.NoError(t, DecodeJSON(newRequest("{\"item_id\":1,\"quantity\":1}\n  \n"), &dest))
	assert.Equal(t, saleBody{ItemID: 1, Quantity: 1}, dest)
}

func TestParsePathID(t *testing.T) {
	withParam := func(v string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/items/"+v, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", v)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := ParsePathID(withParam("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-1", "abc"} {
		_, err := ParsePathID(withParam(bad), "id")
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), bad)
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := BearerToken(r)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	r.Header.Set("Authorization", "Bearer abc.def")
	token, err := BearerToken(r)
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	r.Header.Set("Authorization", "Bearer ")
	_, err = BearerToken(r)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
