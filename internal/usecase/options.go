// Package usecase holds the per-session orchestration of flight search:
// route catalog, search parameters, execution, filters, itinerary selection
// and attachment quotas.
package usecase

import "time"

// Default session values.
const (
	DefaultSearchTimeout = 15 * time.Second
	DefaultErrorTTL      = 8 * time.Second
	DefaultIdleTTL       = 30 * time.Minute
	DefaultTimezone      = "UTC"
)

// Config contains the tunables of a search session.
type Config struct {
	// DebounceWindow is the quiet period for duration-range changes
	DebounceWindow time.Duration

	// SearchTimeout bounds searches that run outside a request, i.e. debounced ones
	SearchTimeout time.Duration

	// ErrorTTL is how long a search error stays visible; zero keeps it until dismissed
	ErrorTTL time.Duration

	// IdleTTL is how long an untouched session lives
	IdleTTL time.Duration

	// Timezone turns timestamp inputs into calendar dates
	Timezone string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DebounceWindow: DefaultDebounceWindow,
		SearchTimeout:  DefaultSearchTimeout,
		ErrorTTL:       DefaultErrorTTL,
		IdleTTL:        DefaultIdleTTL,
		Timezone:       DefaultTimezone,
	}
}

// resolveConfig fills unset values of config with defaults. A nil config yields DefaultConfig.
func resolveConfig(config *Config) Config {
	cfg := DefaultConfig()
	if config == nil {
		return cfg
	}
	if config.DebounceWindow > 0 {
		cfg.DebounceWindow = config.DebounceWindow
	}
	if config.SearchTimeout > 0 {
		cfg.SearchTimeout = config.SearchTimeout
	}
	if config.ErrorTTL >= 0 {
		cfg.ErrorTTL = config.ErrorTTL
	}
	if config.IdleTTL > 0 {
		cfg.IdleTTL = config.IdleTTL
	}
	if config.Timezone != "" {
		cfg.Timezone = config.Timezone
	}
	return cfg
}
