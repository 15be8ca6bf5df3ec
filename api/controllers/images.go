package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/pos-inventory-backend/api/responses"
	"github.com/angelmondragon/pos-inventory-backend/internal/images"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
	"github.com/angelmondragon/pos-inventory-backend/pkg/validation"
)

type imageUploader interface {
	Store(ctx context.Context, file images.File) (string, error)
	MaxBytes() int64
}

type imageUploadResponse struct {
	ImageURL string `json:"image_url"`
}

// ImagesUpload stores a standalone image (multipart field "image") and returns
// its public URL for a later catalog write.
func ImagesUpload(svc imageUploader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isMultipart(r) {
			responses.WriteError(r.Context(), logg, w, validation.Error(validation.FieldErrors{imageFormField: "is required"}))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, svc.MaxBytes()+formOverheadBytes)
		if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, validation.Error(validation.FieldErrors{imageFormField: "image too large"}))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile(imageFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, validation.Error(validation.FieldErrors{imageFormField: "is required"}))
			return
		}
		defer file.Close()

		url, err := svc.Store(r.Context(), images.File{Filename: header.Filename, Body: file})
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to upload image")
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, imageUploadResponse{ImageURL: url})
	}
}
