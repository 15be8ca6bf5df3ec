package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-inventory-backend/api/middleware"
	"github.com/angelmondragon/pos-inventory-backend/api/responses"
	"github.com/angelmondragon/pos-inventory-backend/api/validators"
	"github.com/angelmondragon/pos-inventory-backend/internal/items"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
)

func ItemsList(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to fetch items")
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ItemsGet(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to fetch item")
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// ItemsCreate accepts JSON or multipart form data with an optional image file.
func ItemsCreate(svc items.Service, maxImageBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decodeItemRequest(w, r, maxImageBytes, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer req.Close()

		actor := middleware.ActorFromContext(r.Context())
		item, err := svc.Create(r.Context(), actor, items.CreateInput{ItemFields: req.fields}, req.image)
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to create item")
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func ItemsUpdate(svc items.Service, maxImageBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := decodeItemRequest(w, r, maxImageBytes, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer req.Close()

		actor := middleware.ActorFromContext(r.Context())
		input := items.UpdateInput{ItemFields: req.fields, CurrentStock: req.currentStock}
		item, err := svc.Update(r.Context(), actor, id, input, req.image)
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to update item")
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ItemsDelete(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actor := middleware.ActorFromContext(r.Context())
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to delete item")
			return
		}
		responses.WriteNoContent(w)
	}
}
