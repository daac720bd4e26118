package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pulseboardhq/pulseboard-backend/api/routes"
	"github.com/pulseboardhq/pulseboard-backend/internal/aggregator"
	"github.com/pulseboardhq/pulseboard-backend/internal/cache"
	"github.com/pulseboardhq/pulseboard-backend/internal/insights"
	"github.com/pulseboardhq/pulseboard-backend/internal/periods"
	"github.com/pulseboardhq/pulseboard-backend/internal/providers/registry"
	"github.com/pulseboardhq/pulseboard-backend/pkg/config"
	"github.com/pulseboardhq/pulseboard-backend/pkg/logger"
	"github.com/pulseboardhq/pulseboard-backend/pkg/metrics"
	"github.com/pulseboardhq/pulseboard-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid timezone", err)
		os.Exit(1)
	}

	brandConfigs, err := config.LoadBrands(cfg.App.BrandsFile)
	if err != nil {
		logg.Error(context.Background(), "failed to load brand roster", err)
		os.Exit(1)
	}

	brands, err := registry.Build(context.Background(), brandConfigs, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build brand registry", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, rate limiting disabled")
	}

	service := aggregator.New(aggregator.Params{
		Brands:   brands,
		Resolver: periods.NewResolver(loc),
		Cache:    cache.New(cfg.Cache.DefaultTTL),
		TTLs: aggregator.CacheTTLs{
			Orders:  cfg.Cache.OrdersTTL,
			Traffic: cfg.Cache.TrafficTTL,
			Ads:     cfg.Cache.AdsTTL,
			Email:   cfg.Cache.EmailTTL,
		},
		Timeouts: aggregator.Timeouts{
			Orders:  cfg.Providers.OrdersTimeout,
			Traffic: cfg.Providers.TrafficTimeout,
			Ads:     cfg.Providers.AdsTimeout,
			Email:   cfg.Providers.EmailTimeout,
		},
		Calls:  metrics.NewProviderCallMetrics(prometheus.DefaultRegisterer),
		Logger: logg,
	})
	insighter := insights.NewService(insights.NewRuleBased(), cfg.Insights.Timeout)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"timezone": loc.String(),
		"brands":   len(brands),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, service, insighter),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining requests")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "forced shutdown after drain deadline", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
