package controllers

import (
	"net/http"

	"github.com/resgatesabor/resgatesabor-backend/api/responses"
	"github.com/resgatesabor/resgatesabor-backend/pkg/config"
	"github.com/resgatesabor/resgatesabor-backend/pkg/db"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
	"github.com/resgatesabor/resgatesabor-backend/pkg/redis"
)

const envHeader = "X-ResgateSabor-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies. A failed ping returns 503 so the
// orchestrator pulls the instance out of rotation.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "database unreachable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
