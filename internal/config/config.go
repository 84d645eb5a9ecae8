// Package config provides application configuration management.
// It loads configuration from environment variables with support for .env files.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Cache drivers for the per-session search slot.
const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Session SessionConfig
	Redis   RedisConfig
	Logging LoggingConfig
	Metrics MetricsConfig
	App     AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// BackendConfig holds settings for the remote flight API.
type BackendConfig struct {
	BaseURL        string        `env:"BACKEND_BASE_URL" envDefault:"http://localhost:9090/api"`
	Token          string        `env:"BACKEND_TOKEN"`
	Timeout        time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`
	RateLimitRPS   float64       `env:"BACKEND_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int           `env:"BACKEND_RATE_LIMIT_BURST" envDefault:"20"`
	RetryAttempts  int           `env:"BACKEND_RETRY_ATTEMPTS" envDefault:"3"`
}

// SessionConfig holds search session settings.
type SessionConfig struct {
	DebounceWindow time.Duration `env:"SESSION_DEBOUNCE_WINDOW" envDefault:"800ms"`
	SearchTimeout  time.Duration `env:"SESSION_SEARCH_TIMEOUT" envDefault:"15s"`
	CacheTTL       time.Duration `env:"SESSION_CACHE_TTL" envDefault:"1h"`
	IdleTTL        time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	ErrorTTL       time.Duration `env:"SESSION_ERROR_TTL" envDefault:"8s"`
	SweepInterval  time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	CacheDriver    string        `env:"SESSION_CACHE_DRIVER" envDefault:"memory"`
	Timezone       string        `env:"SESSION_TIMEZONE" envDefault:"UTC"`
}

// RedisConfig holds the Redis connection used by the redis cache driver.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first (optional - won't fail if missing).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics on error.
// Use this in main() where configuration is required to start.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// validate checks configuration values for correctness.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout},
		{"BACKEND_TIMEOUT", cfg.Backend.Timeout},
		{"SESSION_DEBOUNCE_WINDOW", cfg.Session.DebounceWindow},
		{"SESSION_SEARCH_TIMEOUT", cfg.Session.SearchTimeout},
		{"SESSION_CACHE_TTL", cfg.Session.CacheTTL},
		{"SESSION_IDLE_TTL", cfg.Session.IdleTTL},
		{"SESSION_SWEEP_INTERVAL", cfg.Session.SweepInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive", p.name)
		}
	}

	// Zero keeps the last error until it is dismissed
	if cfg.Session.ErrorTTL < 0 {
		return fmt.Errorf("SESSION_ERROR_TTL cannot be negative")
	}

	if cfg.Session.SweepInterval > cfg.Session.IdleTTL {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL (%s) should not exceed SESSION_IDLE_TTL (%s)",
			cfg.Session.SweepInterval, cfg.Session.IdleTTL)
	}

	if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute URL, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.RateLimitRPS <= 0 {
		return fmt.Errorf("BACKEND_RATE_LIMIT_RPS must be positive")
	}
	if cfg.Backend.RateLimitBurst < 1 {
		return fmt.Errorf("BACKEND_RATE_LIMIT_BURST must be at least 1, got %d", cfg.Backend.RateLimitBurst)
	}
	if cfg.Backend.RetryAttempts < 1 {
		return fmt.Errorf("BACKEND_RETRY_ATTEMPTS must be at least 1, got %d", cfg.Backend.RetryAttempts)
	}

	switch cfg.Session.CacheDriver {
	case CacheDriverMemory:
	case CacheDriverRedis:
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_CACHE_DRIVER is redis")
		}
	default:
		return fmt.Errorf("SESSION_CACHE_DRIVER must be one of: memory, redis; got %q", cfg.Session.CacheDriver)
	}

	if _, err := time.LoadLocation(cfg.Session.Timezone); err != nil {
		return fmt.Errorf("SESSION_TIMEZONE %q is not a known timezone", cfg.Session.Timezone)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console; got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/') {
		return fmt.Errorf("METRICS_PATH must start with '/', got %q", cfg.Metrics.Path)
	}

	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[cfg.App.Env] {
		return fmt.Errorf("APP_ENV must be one of: development, staging, production; got %q", cfg.App.Env)
	}

	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
