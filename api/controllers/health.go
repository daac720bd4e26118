package controllers

import (
	"net/http"

	"github.com/pulseboardhq/pulseboard-backend/api/responses"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
	"github.com/pulseboardhq/pulseboard-backend/pkg/logger"
	"github.com/pulseboardhq/pulseboard-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pulseboard-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports dependency status. Redis is optional; when absent the
// check is reported as skipped, not failed.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisClient redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pulseboard-Env", cfg.App.Env)

		checks := map[string]string{}
		status := "ready"

		if redisClient == nil {
			checks["redis"] = "skipped"
		} else if err := redisClient.Ping(r.Context()); err != nil {
			checks["redis"] = "unreachable"
			status = "degraded"
			if logg != nil {
				logg.Warn(r.Context(), "readiness: redis unreachable")
			}
		} else {
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": status, "checks": checks})
	}
}
