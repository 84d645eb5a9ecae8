// Package main is the entry point for the flight search session service.
//
//	@title						Flight Search Session API
//	@version					1.0.0
//	@description				Backend-for-frontend that keeps per-tab flight search state, filters, itinerary selection and subscription quotas.
//
//	@contact.name				API Support
//	@contact.url				https://github.com/flight-search/flight-session-orchestrator/issues
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@schemes					http https
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/flight-search/flight-session-orchestrator/internal/config"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/logger"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/sessionstore"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"

	// Application layers
	"github.com/flight-search/flight-session-orchestrator/internal/adapter/backend"
	sessionhttp "github.com/flight-search/flight-session-orchestrator/internal/adapter/http"
	"github.com/flight-search/flight-session-orchestrator/internal/adapter/http/middleware"
	"github.com/flight-search/flight-session-orchestrator/internal/usecase"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger with config
	log := setupLogger(cfg)

	log.Info().
		Str("env", cfg.App.Env).
		Int("port", cfg.Server.Port).
		Str("cache_driver", cfg.Session.CacheDriver).
		Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := timeutil.NewRealClock()

	var (
		m        *metrics.Metrics
		registry *prometheus.Registry
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(registry)
	}

	store, err := setupStore(ctx, cfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}

	client, err := backend.New(backend.Config{
		BaseURL:           cfg.Backend.BaseURL,
		Token:             cfg.Backend.Token,
		Timeout:           cfg.Backend.Timeout,
		RequestsPerSecond: cfg.Backend.RateLimitRPS,
		Burst:             cfg.Backend.RateLimitBurst,
		RetryAttempts:     cfg.Backend.RetryAttempts,
	}, clock, log.With().Str("component", "backend").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create backend client")
	}

	sessions := usecase.NewSessionManager(
		client,
		func(sessionID string) usecase.SearchCache {
			return sessionstore.NewSlot(store, sessionID)
		},
		clock,
		&usecase.Config{
			DebounceWindow: cfg.Session.DebounceWindow,
			SearchTimeout:  cfg.Session.SearchTimeout,
			ErrorTTL:       cfg.Session.ErrorTTL,
			IdleTTL:        cfg.Session.IdleTTL,
			Timezone:       cfg.Session.Timezone,
		},
		log.Logger,
		m,
	)
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Configure server timeouts from config
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupWithConfig(e, log.Logger, middleware.RecoveryConfig{
		DisablePrintStack: cfg.IsProduction(),
	})

	sessionhttp.RegisterRoutes(e, sessionhttp.NewSessionHandler(sessions, log.Logger))
	if registry != nil {
		sessionhttp.RegisterMetrics(e, cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	// Start server with graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		log.Info().Str("address", addr).Msg("Starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	gracefulShutdown(e, cfg, log, sessions, store)
}

// setupLogger builds the service logger and installs it as the global zerolog logger.
func setupLogger(cfg *config.Config) *logger.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	l := logger.New(logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.IsDevelopment(),
		ServiceName:  "flight-session",
	})
	zlog.Logger = l.Logger
	return l
}

// setupStore opens the search cache selected by SESSION_CACHE_DRIVER.
func setupStore(ctx context.Context, cfg *config.Config, clock timeutil.Clock) (sessionstore.Store, error) {
	if cfg.Session.CacheDriver == config.CacheDriverRedis {
		return sessionstore.NewRedisStore(ctx, sessionstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Session.CacheTTL,
		})
	}
	return sessionstore.NewMemoryStore(cfg.Session.CacheTTL, clock), nil
}

// gracefulShutdown stops accepting requests, then releases sessions and the store.
func gracefulShutdown(e *echo.Echo, cfg *config.Config, log *logger.Logger, sessions *usecase.SessionManager, store sessionstore.Store) {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	sessions.Shutdown()

	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing session store")
	}

	log.Info().Msg("Server stopped")
}
