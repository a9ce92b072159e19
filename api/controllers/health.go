package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/acquiremock/acquiremock-backend/api/responses"
	"github.com/acquiremock/acquiremock-backend/pkg/config"
	pkgerrors "github.com/acquiremock/acquiremock-backend/pkg/errors"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
)

// Version is reported by the health endpoint.
const Version = "2.0.0"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   Version,
		})
	}
}

// HealthReady checks the dependencies the checkout flow cannot run without.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if database != nil {
			if err := database.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{
			"status":    "ready",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   Version,
		})
	}
}
