package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/sessionstore"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
	"github.com/flight-search/flight-session-orchestrator/internal/usecase"
)

// newTestSessions returns a session manager over an in-memory store. The
// backend mock fails the test if any middleware path reaches it.
func newTestSessions(t *testing.T) *usecase.SessionManager {
	t.Helper()

	ctrl := gomock.NewController(t)
	clock := timeutil.NewMockClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := sessionstore.NewMemoryStore(time.Hour, clock)
	slots := func(id string) usecase.SearchCache {
		return sessionstore.NewSlot(store, id)
	}

	return usecase.NewSessionManager(domain.NewMockFlightBackend(ctrl), slots, clock, nil, zerolog.Nop(), nil)
}

// =====================================================
// Request ID Middleware Tests
// =====================================================

func TestRequestID_GeneratesNewID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	require.NoError(t, handler(c))

	reqID := rec.Header().Get(RequestIDHeader)
	assert.Len(t, reqID, 36, "should be UUID format (36 chars)")
	assert.Equal(t, reqID, GetRequestID(c), "context ID should match header ID")
}

func TestRequestID_PropagatesExistingID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "existing-request-id-12345")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, "existing-request-id-12345", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "existing-request-id-12345", GetRequestID(c))
}

func TestGetRequestID_ReturnsEmptyWhenNotSet(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), httptest.NewRecorder())

	assert.Empty(t, GetRequestID(c))
}

// =====================================================
// Session Middleware Tests
// =====================================================

func TestSession_CreatesSessionWhenHeaderMissing(t *testing.T) {
	sessions := newTestSessions(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/search", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *usecase.Session
	handler := Session(sessions)(func(c echo.Context) error {
		seen = GetSession(c)
		return c.NoContent(http.StatusNoContent)
	})

	require.NoError(t, handler(c))

	require.NotNil(t, seen)
	assert.Len(t, seen.ID(), 36, "new sessions get a UUID")
	assert.Equal(t, seen.ID(), rec.Header().Get(SessionIDHeader))
	assert.Equal(t, seen.ID(), GetSessionID(c))
	assert.Equal(t, 1, sessions.Len())
}

func TestSession_ReusesKnownSession(t *testing.T) {
	sessions := newTestSessions(t)

	e := echo.New()
	var ids []*usecase.Session
	e.GET("/probe", func(c echo.Context) error {
		ids = append(ids, GetSession(c))
		return c.NoContent(http.StatusNoContent)
	}, Session(sessions))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(SessionIDHeader, "tab-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, "tab-1", rec.Header().Get(SessionIDHeader))
	}

	require.Len(t, ids, 2)
	assert.Same(t, ids[0], ids[1], "same header must resolve to the same session")
	assert.Equal(t, 1, sessions.Len())
}

func TestSession_SeparatesTabs(t *testing.T) {
	sessions := newTestSessions(t)

	e := echo.New()
	e.GET("/probe", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, Session(sessions))

	for _, id := range []string{"tab-1", "tab-2"} {
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(SessionIDHeader, id)
		e.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2, sessions.Len())
}

func TestSession_ReplacesOversizedID(t *testing.T) {
	sessions := newTestSessions(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	oversized := strings.Repeat("x", maxSessionIDLength+1)
	req.Header.Set(SessionIDHeader, oversized)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Session(sessions)(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	require.NoError(t, handler(c))

	assert.NotEqual(t, oversized, rec.Header().Get(SessionIDHeader))
	assert.Len(t, rec.Header().Get(SessionIDHeader), 36)
}

func TestGetSession_ReturnsNilWithoutMiddleware(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), httptest.NewRecorder())

	assert.Nil(t, GetSession(c))
	assert.Empty(t, GetSessionID(c))
}

// =====================================================
// Request Logging Middleware Tests
// =====================================================

func TestRequestLogger_LogsRequestDetails(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf).With().Timestamp().Logger()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/search?foo=bar", nil)
	req.Header.Set("User-Agent", "TestAgent/1.0")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Set request ID first (simulating middleware chain)
	c.Set("request_id", "test-req-id-123")

	handler := RequestLogger(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	require.NoError(t, handler(c))

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logEntry), "log output should be valid JSON")

	assert.Equal(t, "test-req-id-123", logEntry["request_id"])
	assert.Equal(t, "POST", logEntry["method"])
	assert.Equal(t, "/api/v1/session/search", logEntry["path"])
	assert.Equal(t, "foo=bar", logEntry["query"])
	assert.Equal(t, float64(200), logEntry["status"])
	assert.Contains(t, logEntry, "duration_ms")
	assert.Equal(t, "TestAgent/1.0", logEntry["user_agent"])
	assert.Equal(t, "HTTP request", logEntry["message"])
	assert.NotContains(t, logEntry, "session_id", "no session outside the API group")
}

func TestRequestLogger_LogsSessionID(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)
	sessions := newTestSessions(t)

	e := echo.New()
	e.Use(RequestLogger(logger))
	api := e.Group("/api/v1", Session(sessions))
	api.GET("/probe", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/probe", nil)
	req.Header.Set(SessionIDHeader, "tab-42")
	e.ServeHTTP(httptest.NewRecorder(), req)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logEntry))
	assert.Equal(t, "tab-42", logEntry["session_id"])
	assert.Equal(t, "/api/v1/probe", logEntry["route"])
}

func TestRequestLogger_LogsClientIP(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Real-IP", "192.168.1.100")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestLogger(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	require.NoError(t, handler(c))

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logEntry))
	assert.Equal(t, "192.168.1.100", logEntry["client_ip"])
}

func TestRequestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{name: "success logs at info", status: http.StatusOK, level: "info"},
		{name: "client error logs at warn", status: http.StatusConflict, level: "warn"},
		{name: "server error logs at error", status: http.StatusBadGateway, level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := zerolog.New(&logBuf)

			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), httptest.NewRecorder())

			handler := RequestLogger(logger)(func(c echo.Context) error {
				return c.NoContent(tt.status)
			})
			require.NoError(t, handler(c))

			var logEntry map[string]interface{}
			require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logEntry))
			assert.Equal(t, float64(tt.status), logEntry["status"])
			assert.Equal(t, tt.level, logEntry["level"])
		})
	}
}

func TestRequestLogger_WritesHandlerErrors(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/missing", nil), rec)

	handler := RequestLogger(logger)(func(c echo.Context) error {
		return echo.ErrNotFound
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logEntry))
	assert.Equal(t, float64(404), logEntry["status"])
}

// =====================================================
// Recovery Middleware Tests
// =====================================================

func TestRecover_Returns500OnPanic(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/panic", nil), rec)

	handler := Recover(logger)(func(c echo.Context) error {
		panic("test panic")
	})

	assert.NotPanics(t, func() {
		_ = handler(c)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body["code"])
	assert.Equal(t, "An unexpected error occurred", body["message"])
	assert.NotContains(t, rec.Body.String(), "test panic", "panic details must not leak")
}

func TestRecover_LogsPanicWithStackTrace(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/panic", nil), httptest.NewRecorder())
	c.Set("request_id", "stack-test-id")

	handler := Recover(logger)(func(c echo.Context) error {
		panic("stack trace test panic")
	})

	_ = handler(c)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logEntry))

	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "stack-test-id", logEntry["request_id"])
	assert.Equal(t, "stack trace test panic", logEntry["panic"])
	stack, ok := logEntry["stack"].(string)
	require.True(t, ok)
	assert.Contains(t, stack, "goroutine")
	assert.Equal(t, "Panic recovered", logEntry["message"])
}

func TestRecover_HandlesRuntimeErrorPanic(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/panic", nil), rec)

	handler := Recover(logger)(func(c echo.Context) error {
		var slice []int
		_ = slice[10] // index out of range
		return nil
	})

	assert.NotPanics(t, func() {
		_ = handler(c)
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecover_PassesThroughNormalRequests(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/normal", nil), rec)

	handler := Recover(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "normal response")
	})

	require.NoError(t, handler(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "normal response", rec.Body.String())
	assert.Empty(t, logBuf.String(), "should not log anything for normal requests")
}

func TestRecoverWithConfig_DisableStackPrint(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/panic", nil), httptest.NewRecorder())

	handler := RecoverWithConfig(logger, RecoveryConfig{DisablePrintStack: true})(func(c echo.Context) error {
		panic("no stack test")
	})

	_ = handler(c)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logEntry))
	assert.NotContains(t, logEntry, "stack", "stack should not be logged when disabled")
}

// =====================================================
// Setup Helper Tests
// =====================================================

func TestSetup_AppliesAllMiddleware(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	e := echo.New()
	Setup(e, logger)

	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "setup test")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader), "RequestID middleware should set header")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(logBuf.Bytes(), &logEntry))
	assert.Equal(t, rec.Header().Get(RequestIDHeader), logEntry["request_id"])
}

func TestSetup_RecoversPanicAndKeepsServing(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})

	e := echo.New()
	Setup(e, logger)

	e.GET("/panic", func(c echo.Context) error {
		panic("setup panic test")
	})
	e.GET("/ok", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSetupWithConfig_AppliesCustomConfig(t *testing.T) {
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	e := echo.New()
	SetupWithConfig(e, logger, RecoveryConfig{DisablePrintStack: true})

	e.GET("/panic", func(c echo.Context) error {
		panic("config panic test")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// Both the panic and the request are logged; find the panic entry
	var panicLogEntry map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(logBuf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err == nil && entry["message"] == "Panic recovered" {
			panicLogEntry = entry
			break
		}
	}
	require.NotNil(t, panicLogEntry, "should have panic log entry")
	assert.NotContains(t, panicLogEntry, "stack", "stack should be disabled via config")
}

func TestChain_ReturnsMiddlewareSlice(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})

	chain := Chain(logger)
	assert.Len(t, chain, 3, "Chain should return 3 middleware functions")

	e := echo.New()
	g := e.Group("/grouped", chain...)
	g.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "chain test")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grouped/test", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}
