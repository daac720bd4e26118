package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Providers ProvidersConfig
	RateLimit RateLimitConfig
	Insights  InsightsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"PULSEBOARD_APP_ENV" required:"true"`
	Port         string   `envconfig:"PULSEBOARD_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"PULSEBOARD_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PULSEBOARD_LOG_WARN_STACK" default:"false"`
	Timezone     string   `envconfig:"PULSEBOARD_TIMEZONE" default:"UTC"`
	BrandsFile   string   `envconfig:"PULSEBOARD_BRANDS_FILE" default:"brands.yaml"`
	CORSOrigins  []string `envconfig:"PULSEBOARD_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the configured IANA timezone used for all window arithmetic.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PULSEBOARD_REDIS_URL"`
	Address      string        `envconfig:"PULSEBOARD_REDIS_ADDR"`
	Password     string        `envconfig:"PULSEBOARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"PULSEBOARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PULSEBOARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PULSEBOARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PULSEBOARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PULSEBOARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PULSEBOARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// CacheConfig carries the per-data-kind TTLs for the in-process dashboard cache.
// Order data moves fastest and gets the shortest TTL; ad and subscription data
// change slowly and may be held longer.
type CacheConfig struct {
	DefaultTTL time.Duration `envconfig:"PULSEBOARD_CACHE_DEFAULT_TTL" default:"5m"`
	OrdersTTL  time.Duration `envconfig:"PULSEBOARD_CACHE_ORDERS_TTL" default:"2m"`
	TrafficTTL time.Duration `envconfig:"PULSEBOARD_CACHE_TRAFFIC_TTL" default:"5m"`
	AdsTTL     time.Duration `envconfig:"PULSEBOARD_CACHE_ADS_TTL" default:"10m"`
	EmailTTL   time.Duration `envconfig:"PULSEBOARD_CACHE_EMAIL_TTL" default:"15m"`
}

// ProvidersConfig carries the per-provider-class call deadlines.
type ProvidersConfig struct {
	OrdersTimeout  time.Duration `envconfig:"PULSEBOARD_PROVIDER_ORDERS_TIMEOUT" default:"8s"`
	TrafficTimeout time.Duration `envconfig:"PULSEBOARD_PROVIDER_TRAFFIC_TIMEOUT" default:"10s"`
	AdsTimeout     time.Duration `envconfig:"PULSEBOARD_PROVIDER_ADS_TIMEOUT" default:"12s"`
	EmailTimeout   time.Duration `envconfig:"PULSEBOARD_PROVIDER_EMAIL_TIMEOUT" default:"8s"`
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"PULSEBOARD_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"PULSEBOARD_RATE_LIMIT_MAX" default:"120"`
}

type InsightsConfig struct {
	Timeout time.Duration `envconfig:"PULSEBOARD_INSIGHTS_TIMEOUT" default:"30s"`
}
