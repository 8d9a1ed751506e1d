package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-proxy/internal/weather"
	"github.com/i474232898/weather-proxy/internal/weather/providers"
)

const (
	CacheDriverMemory   = "memory"
	CacheDriverPostgres = "postgres"
)

type AppConfig struct {
	Port string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	// HTTPTimeout bounds outbound provider calls (0 = no client timeout).
	HTTPTimeout time.Duration

	CurrentTTL  time.Duration
	ForecastTTL time.Duration

	CacheDriver string
	DatabaseURL string

	// In-memory cache retention.
	CacheMaxEntries int // 0 = unlimited

	// CachePruneInterval controls how often expired entries are dropped (0 = never).
	CachePruneInterval time.Duration

	// Outbound throttling and retry.
	ProviderRateLimit  float64 // requests per second, 0 = unlimited
	ProviderRateBurst  int
	ProviderMaxRetries int

	CORSAllowOrigins string
	StaticDir        string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		log.Printf("INFO: OPENWEATHER_API_KEY is not set; upstream requests will fail")
	}
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", providers.DefaultOpenWeatherBaseURL)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "0"); err != nil {
		return nil, err
	}
	if cfg.CurrentTTL, err = getenvDuration("CURRENT_WEATHER_TTL", weather.DefaultCurrentTTL.String()); err != nil {
		return nil, err
	}
	if cfg.ForecastTTL, err = getenvDuration("FORECAST_TTL", weather.DefaultForecastTTL.String()); err != nil {
		return nil, err
	}
	if cfg.CurrentTTL <= 0 || cfg.ForecastTTL <= 0 {
		return nil, fmt.Errorf("cache TTLs must be positive")
	}

	cfg.CacheDriver = strings.ToLower(getenvDefault("CACHE_DRIVER", CacheDriverMemory))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	switch cfg.CacheDriver {
	case CacheDriverMemory:
	case CacheDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when CACHE_DRIVER=%s", CacheDriverPostgres)
		}
	default:
		return nil, fmt.Errorf("invalid CACHE_DRIVER: %q", cfg.CacheDriver)
	}

	if cfg.CacheMaxEntries, err = getenvInt("CACHE_MAX_ENTRIES", 1000); err != nil {
		return nil, err
	}
	if cfg.CachePruneInterval, err = getenvDuration("CACHE_PRUNE_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	rateStr := getenvDefault("PROVIDER_RATE_LIMIT", "0")
	cfg.ProviderRateLimit, err = strconv.ParseFloat(rateStr, 64)
	if err != nil || cfg.ProviderRateLimit < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_RATE_LIMIT: %q", rateStr)
	}
	if cfg.ProviderRateBurst, err = getenvInt("PROVIDER_RATE_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.ProviderMaxRetries, err = getenvInt("PROVIDER_MAX_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.ProviderMaxRetries < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES: %d", cfg.ProviderMaxRetries)
	}

	cfg.CORSAllowOrigins = getenvDefault("CORS_ALLOW_ORIGINS", "*")
	cfg.StaticDir = os.Getenv("STATIC_DIR")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c *AppConfig) ListenAddr() string {
	return ":" + c.Port
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
