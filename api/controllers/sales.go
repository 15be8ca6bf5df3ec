package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-inventory-backend/api/middleware"
	"github.com/angelmondragon/pos-inventory-backend/api/responses"
	"github.com/angelmondragon/pos-inventory-backend/api/validators"
	"github.com/angelmondragon/pos-inventory-backend/internal/ledger"
	"github.com/angelmondragon/pos-inventory-backend/internal/sales"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
)

const saleFailedMessage = "Failed to process transaction"

// SalesCreate records a sale. Field validation happens in the processor so
// every rejection is counted there.
func SalesCreate(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sales.SaleInput
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		txn, err := svc.Sell(r.Context(), actor, body)
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, saleFailedMessage)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// SalesList returns every transaction, newest first. ?include_item=false
// drops the embedded item summary.
func SalesList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeItem, err := validators.ParseQueryBool(r, "include_item", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), includeItem)
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to fetch transactions")
			return
		}
		responses.WriteSuccess(w, list)
	}
}
