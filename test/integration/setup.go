// Package integration provides helpers and integration tests for the flight session service.
// Integration tests run the full stack: HTTP handlers, session use cases, the
// real backend client and a fake backend served over HTTP.
package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/flight-search/flight-session-orchestrator/internal/adapter/backend"
	httpAdapter "github.com/flight-search/flight-session-orchestrator/internal/adapter/http"
	"github.com/flight-search/flight-session-orchestrator/internal/adapter/http/middleware"
	"github.com/flight-search/flight-session-orchestrator/internal/adapter/http/response"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/sessionstore"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
	"github.com/flight-search/flight-session-orchestrator/internal/usecase"
	"github.com/flight-search/flight-session-orchestrator/test/mock"
	"github.com/flight-search/flight-session-orchestrator/test/testutil"
)

// MetricsPath is where the test server exposes Prometheus metrics.
const MetricsPath = "/metrics"

// TestServer wraps an Echo instance wired to a fake backend.
type TestServer struct {
	Echo     *echo.Echo
	Backend  *mock.Backend
	Sessions *usecase.SessionManager
	Store    sessionstore.Store
	Clock    *timeutil.MockClock
	Registry *prometheus.Registry
}

// NewTestServer creates a server whose timers run on a mock clock.
// Backend round trips are real HTTP calls to fake.
func NewTestServer(t *testing.T, fake *mock.Backend) *TestServer {
	t.Helper()

	clock := timeutil.NewMockClock(time.Now().UTC())
	store := sessionstore.NewMemoryStore(time.Hour, clock)
	return newTestServerWithStore(t, fake, clock, store)
}

func newTestServerWithStore(t *testing.T, fake *mock.Backend, clock *timeutil.MockClock, store sessionstore.Store) *TestServer {
	t.Helper()

	client, err := backend.New(backend.Config{
		BaseURL:       fake.URL(),
		Timeout:       5 * time.Second,
		RetryAttempts: 1,
	}, timeutil.NewRealClock(), zerolog.Nop())
	require.NoError(t, err)

	m, reg := metrics.NewIsolated()
	sessions := usecase.NewSessionManager(
		client,
		func(id string) usecase.SearchCache { return sessionstore.NewSlot(store, id) },
		clock,
		nil,
		zerolog.Nop(),
		m,
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	middleware.Setup(e, zerolog.Nop())

	httpAdapter.RegisterRoutes(e, httpAdapter.NewSessionHandler(sessions, zerolog.Nop()))
	httpAdapter.RegisterMetrics(e, MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &TestServer{
		Echo:     e,
		Backend:  fake,
		Sessions: sessions,
		Store:    store,
		Clock:    clock,
		Registry: reg,
	}
}

// Response represents a test HTTP response.
type Response struct {
	Code    int
	Body    []byte
	Headers http.Header
}

// Do executes a request on session. A string body is sent verbatim.
func (ts *TestServer) Do(session, method, path string, body interface{}) Response {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if payload != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if session != "" {
		req.Header.Set(middleware.SessionIDHeader, session)
	}

	rec := httptest.NewRecorder()
	ts.Echo.ServeHTTP(rec, req)

	return Response{
		Code:    rec.Code,
		Body:    rec.Body.Bytes(),
		Headers: rec.Header(),
	}
}

// SelectRoute selects subscriptionID and origin -> destination on session.
func (ts *TestServer) SelectRoute(t *testing.T, session, subscriptionID, origin, destination string) {
	t.Helper()

	resp := ts.Do(session, http.MethodPut, "/api/v1/session/subscription", httpAdapter.SelectSubscriptionRequest{SubscriptionID: subscriptionID})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))

	resp = ts.Do(session, http.MethodPut, "/api/v1/session/route-selection", httpAdapter.RouteSelectionRequest{Origin: origin, Destination: destination})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
}

// Search submits the search form on session.
func (ts *TestServer) Search(session string, form httpAdapter.SearchFormRequest) Response {
	return ts.Do(session, http.MethodPost, "/api/v1/session/search", form)
}

// SearchState decodes a search state body.
func (r Response) SearchState(t *testing.T) httpAdapter.SearchStateDTO {
	t.Helper()
	return testutil.DecodeJSON[httpAdapter.SearchStateDTO](t, r.Body)
}

// Error decodes an error body.
func (r Response) Error(t *testing.T) response.ErrorDetail {
	t.Helper()
	return testutil.DecodeJSON[response.ErrorDetail](t, r.Body)
}

// Standard fixture: one family subscription flying SIN-NRT and SIN-HND,
// one expired package and one that lapsed by date.
const (
	FamilySubscription  = "sub-family"
	ExpiredSubscription = "sub-expired"
	LapsedSubscription  = "sub-lapsed"
)

// NewStandardBackend returns a fake backend loaded with the standard fixture.
// Searches answer with three outbound flights on departure and two return
// flights a week later.
func NewStandardBackend(t *testing.T, departure string) *mock.Backend {
	t.Helper()

	ret := testutil.MustParseDate(t, departure).AddDate(0, 0, 7).Format(testutil.DateLayout)

	lapsed := time.Now().Add(-24 * time.Hour)
	return mock.NewBackend(t).
		WithSubscriptions(
			mock.Subscription{
				ID:                FamilySubscription,
				PackageName:       "Family Flex",
				TripAllowance:     6,
				MemberLimit:       mock.IntPtr(3),
				AllowedRouteCount: mock.IntPtr(3),
				Members:           []mock.Member{{ID: "pax-1", Name: "Ana Lim"}},
			},
			mock.Subscription{ID: ExpiredSubscription, PackageName: "Legacy", Expired: true},
			mock.Subscription{ID: LapsedSubscription, PackageName: "Trial", ExpiresAt: &lapsed},
		).
		WithRoutes(FamilySubscription,
			mock.Route{ID: "route-1", Origin: mock.Airport{Code: "SIN", City: "Singapore"}, Destination: mock.Airport{Code: "NRT", City: "Tokyo"}},
			mock.Route{ID: "route-2", Origin: mock.Airport{Code: "SIN", City: "Singapore"}, Destination: mock.Airport{Code: "HND", City: "Tokyo"}},
		).
		WithFlights(
			mock.SampleFlights("SQ", "SIN", "NRT", departure, 3),
			mock.SampleFlights("JL", "NRT", "SIN", ret, 2),
		)
}
