package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Setup registers the global middleware on the Echo instance, in order:
//  1. RequestID, so every later log line can be correlated
//  2. RequestLogger, which wraps everything below it
//  3. Recover, closest to the handlers
//
// Session resolution is not global; it is attached to the API group by the routes.
func Setup(e *echo.Echo, log zerolog.Logger) {
	SetupWithConfig(e, log, DefaultRecoveryConfig())
}

// SetupWithConfig registers middleware with custom recovery configuration.
func SetupWithConfig(e *echo.Echo, log zerolog.Logger, recoveryConfig RecoveryConfig) {
	e.Use(chain(log, recoveryConfig)...)
}

// Chain returns the global middleware as a slice for use with route groups.
func Chain(log zerolog.Logger) []echo.MiddlewareFunc {
	return chain(log, DefaultRecoveryConfig())
}

func chain(log zerolog.Logger, recoveryConfig RecoveryConfig) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		RequestID(),
		RequestLogger(log),
		RecoverWithConfig(log, recoveryConfig),
	}
}
