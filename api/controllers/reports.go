package controllers

import (
	"net/http"

	"github.com/angelmondragon/pos-inventory-backend/api/responses"
	"github.com/angelmondragon/pos-inventory-backend/internal/reports"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
)

func ReportsStock(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.StockReport(r.Context())
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to build stock report")
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func ReportsTransactions(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.TransactionReport(r.Context())
		if err != nil {
			responses.WriteFailure(r.Context(), logg, w, err, "Failed to build transaction report")
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
