package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulseboardhq/pulseboard-backend/api/controllers"
	"github.com/pulseboardhq/pulseboard-backend/api/controllers/dashboard"
	"github.com/pulseboardhq/pulseboard-backend/api/middleware"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
	"github.com/pulseboardhq/pulseboard-backend/pkg/logger"
	"github.com/pulseboardhq/pulseboard-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	dashboardService dashboard.Service,
	insighter dashboard.Insighter,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	dashboardPolicy := middleware.NewRateLimitPolicy(
		"dashboard",
		cfg.RateLimit.Window,
		cfg.RateLimit.Limit,
	)
	// Redis is optional; a nil client leaves the limiter and the readiness
	// check disabled rather than wiring a typed-nil into the interfaces.
	var limiterStore middleware.RateLimiterStore
	var pinger redis.Pinger
	if redisClient != nil {
		limiterStore = redisClient
		pinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pinger))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/dashboard", func(r chi.Router) {
		r.Use(middleware.RateLimit(dashboardPolicy, limiterStore, logg))

		r.Get("/", dashboard.Tabs(dashboardService))
		r.Post("/query", dashboard.Query(dashboardService, logg))
		r.Get("/overview", dashboard.Overview(dashboardService, logg))
		r.Get("/brands/{brandKey}", dashboard.Brand(dashboardService, logg))
		r.Get("/{tab}/insights", dashboard.Insights(dashboardService, insighter, logg))
	})

	return r
}
