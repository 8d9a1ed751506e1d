package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "github.com/i474232898/weather-proxy/internal/api/http"
	"github.com/i474232898/weather-proxy/internal/cache"
	"github.com/i474232898/weather-proxy/internal/config"
	"github.com/i474232898/weather-proxy/internal/scheduler"
	"github.com/i474232898/weather-proxy/internal/weather"
	"github.com/i474232898/weather-proxy/internal/weather/providers"
)

const serviceName = "weather-proxy"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Cache store selected by driver.
	var store cache.Store
	switch cfg.CacheDriver {
	case config.CacheDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer pool.Close()

		pgStore := cache.NewPostgresStore(pool, cache.SystemClock{})
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to prepare cache table: %v", err)
		}
		store = pgStore
	default:
		store = cache.NewMemoryStore(cache.SystemClock{}, cfg.CacheMaxEntries)
	}
	log.Printf("INFO: using %s cache store", cfg.CacheDriver)

	// Provider with resilience (circuit breaker, optional retry and throttling).
	var provider weather.Provider = providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey,
		providers.WithBaseURL(cfg.OpenWeatherBaseURL),
		providers.WithBackoff(providers.BackoffConfig{
			MaxRetries:      cfg.ProviderMaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}),
	)
	if cfg.ProviderRateLimit > 0 {
		provider = providers.NewRateLimited(provider, cfg.ProviderRateLimit, cfg.ProviderRateBurst)
		log.Printf("INFO: outbound requests limited to %.2f/s (burst %d)", cfg.ProviderRateLimit, cfg.ProviderRateBurst)
	}

	// Core service: read-through cache in front of the provider.
	service := weather.NewService(provider, cache.New(store),
		weather.WithCurrentTTL(cfg.CurrentTTL),
		weather.WithForecastTTL(cfg.ForecastTTL),
	)

	// Scheduler that periodically drops expired cache entries.
	sched := scheduler.New(store, cfg.CachePruneInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}?${queryParams}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: "GET,OPTIONS",
	}))
	app.Use(compress.New())

	httpapi.RegisterHealth(app, serviceName, service)
	httpapi.RegisterRoutes(app, service)

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
		log.Printf("INFO: serving static files from %s", cfg.StaticDir)
	}

	go func() {
		log.Printf("INFO: %s listening on %s", serviceName, cfg.ListenAddr())
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			log.Printf("ERROR: fiber server stopped: %v", err)
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
