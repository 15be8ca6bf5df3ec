package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pos-inventory-backend/api/validators"
	"github.com/angelmondragon/pos-inventory-backend/internal/images"
	"github.com/angelmondragon/pos-inventory-backend/internal/items"
	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/types"
	"github.com/angelmondragon/pos-inventory-backend/pkg/validation"
)

const (
	imageFormField       = "image"
	multipartMemoryBytes = 1 << 20
	formOverheadBytes    = 64 << 10
)

// itemRequest is a decoded catalog write: JSON body or multipart form with an
// optional image part.
type itemRequest struct {
	fields       items.ItemFields
	currentStock *int
	image        *images.File
	closer       io.Closer
}

func (r *itemRequest) Close() {
	if r != nil && r.closer != nil {
		_ = r.closer.Close()
	}
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

func decodeItemRequest(w http.ResponseWriter, r *http.Request, maxImageBytes int64, allowStock bool) (*itemRequest, error) {
	if !isMultipart(r) {
		if allowStock {
			var body items.UpdateInput
			if err := validators.DecodeJSON(r, &body); err != nil {
				return nil, err
			}
			return &itemRequest{fields: body.ItemFields, currentStock: body.CurrentStock}, nil
		}
		var body items.CreateInput
		if err := validators.DecodeJSON(r, &body); err != nil {
			return nil, err
		}
		return &itemRequest{fields: body.ItemFields}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, validation.Error(validation.FieldErrors{imageFormField: "image too large"})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form").
			WithDetails(map[string]string{"body": err.Error()})
	}

	req := &itemRequest{}
	fieldErrs := validation.FieldErrors{}
	form := r.MultipartForm

	req.fields.Name = formValue(form, "name")
	req.fields.Category = enums.ItemCategory(formValue(form, "category"))
	if raw, ok := formLookup(form, "price"); ok {
		price, err := types.ParseMoney(raw)
		if err != nil {
			fieldErrs["price"] = "must be a number"
		} else {
			req.fields.Price = &price
		}
	}
	req.fields.InitialStock = formInt(form, "initial_stock", fieldErrs)
	if raw, ok := formLookup(form, "image_url"); ok {
		req.fields.ImageURL = &raw
	}
	if allowStock {
		req.currentStock = formInt(form, "current_stock", fieldErrs)
	}
	if len(fieldErrs) > 0 {
		_ = form.RemoveAll()
		return nil, validation.Error(fieldErrs)
	}

	file, header, err := r.FormFile(imageFormField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		_ = form.RemoveAll()
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image part").
			WithDetails(map[string]string{imageFormField: "could not be read"})
	default:
		req.image = &images.File{Filename: header.Filename, Body: file}
		req.closer = multiCloser{file, formCleanup{form}}
		return req, nil
	}
	req.closer = formCleanup{form}
	return req, nil
}

func formLookup(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

func formValue(form *multipart.Form, key string) string {
	v, _ := formLookup(form, key)
	return v
}

func formInt(form *multipart.Form, key string, errs validation.FieldErrors) *int {
	raw, ok := formLookup(form, key)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		errs[key] = "must be an integer"
		return nil
	}
	return &v
}

type formCleanup struct {
	form *multipart.Form
}

func (f formCleanup) Close() error {
	return f.form.RemoveAll()
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var err error
	for _, c := range m {
		err = multierr.Append(err, c.Close())
	}
	return err
}
