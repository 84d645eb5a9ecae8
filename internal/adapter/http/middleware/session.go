package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/flight-search/flight-session-orchestrator/internal/usecase"
)

const (
	// SessionIDHeader carries the browser session ID in both directions.
	SessionIDHeader = "X-Session-ID"
	// sessionKey is the context key for the resolved session.
	sessionKey = "session"
	// maxSessionIDLength bounds client-supplied session IDs.
	maxSessionIDLength = 128
)

// SessionResolver finds or creates the session for an ID.
type SessionResolver interface {
	GetOrCreate(ctx context.Context, id string) (*usecase.Session, bool)
}

// Session returns middleware that resolves the X-Session-ID header to a live
// session, creating one when the header is absent or unknown. The effective
// ID is echoed back in the response header.
func Session(resolver SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := strings.TrimSpace(c.Request().Header.Get(SessionIDHeader))
			if len(id) > maxSessionIDLength {
				id = ""
			}

			session, _ := resolver.GetOrCreate(c.Request().Context(), id)

			c.Set(sessionKey, session)
			c.Response().Header().Set(SessionIDHeader, session.ID())

			return next(c)
		}
	}
}

// GetSession retrieves the resolved session from the echo context.
// Returns nil when the Session middleware did not run.
func GetSession(c echo.Context) *usecase.Session {
	if s, ok := c.Get(sessionKey).(*usecase.Session); ok {
		return s
	}
	return nil
}

// GetSessionID returns the ID of the resolved session, or "".
func GetSessionID(c echo.Context) string {
	if s := GetSession(c); s != nil {
		return s.ID()
	}
	return ""
}
