package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/pos-inventory-backend/api/responses"
	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Env    string            `json:"env"`
	Checks map[string]string `json:"checks,omitempty"`
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, healthResponse{Status: "live", Env: cfg.App.Env})
	}
}

// HealthReady pings every dependency and answers 503 when any is down.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := healthResponse{Status: "ready", Env: cfg.App.Env, Checks: map[string]string{}}
		status := http.StatusOK
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				resp.Checks[name] = "down"
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.ready.failed", err)
				}
				continue
			}
			resp.Checks[name] = "ok"
		}
		responses.WriteSuccessStatus(w, status, resp)
	}
}
