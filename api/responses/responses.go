package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError renders err with the public message of its code.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	WriteFailure(ctx, logg, w, err, "")
}

// WriteFailure renders err as {code, message, error, details?, ...fields}.
// failMessage replaces the generic message of internal codes, e.g.
// "Failed to process transaction".
func WriteFailure(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error, failMessage string) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())

	// Causes stay in the logs; the body only carries typed messages.
	msg := meta.PublicMessage
	diagnostic := meta.PublicMessage
	if meta.Internal {
		if failMessage != "" {
			msg = failMessage
		}
	} else if m := typed.Message(); m != "" {
		msg = m
		diagnostic = m
	}

	payload := map[string]any{}
	for k, v := range typed.Fields() {
		payload[k] = v
	}
	payload["code"] = string(typed.Code())
	payload["message"] = msg
	payload["error"] = diagnostic
	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload["details"] = details
		}
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		ctx = logg.WithField(ctx, "status", meta.HTTPStatus)
		if meta.Internal {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Info(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
