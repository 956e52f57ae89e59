package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/veltex/warehouse-backend/api/responses"
	"github.com/veltex/warehouse-backend/pkg/config"
	"github.com/veltex/warehouse-backend/pkg/db"
	pkgerrors "github.com/veltex/warehouse-backend/pkg/errors"
	"github.com/veltex/warehouse-backend/pkg/logger"
	"github.com/veltex/warehouse-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Veltex-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the datasources the gateway depends on. Redis is optional
// infrastructure; when it is not configured the check skips it.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Veltex-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{"db": "ok"}

		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not reachable"))
			return
		}

		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not reachable"))
				return
			}
			checks["redis"] = "ok"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
