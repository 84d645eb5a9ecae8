package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpAdapter "github.com/flight-search/flight-session-orchestrator/internal/adapter/http"
	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/sessionstore"
	"github.com/flight-search/flight-session-orchestrator/internal/usecase"
	"github.com/flight-search/flight-session-orchestrator/test/mock"
	"github.com/flight-search/flight-session-orchestrator/test/testutil"
)

// TestSession_RoundTripAgainstBackend drives a session directly through the
// real backend client.
func TestSession_RoundTripAgainstBackend(t *testing.T) {
	departure := testutil.FutureDate(14)
	ret := testutil.MustParseDate(t, departure).AddDate(0, 0, 7).Format(testutil.DateLayout)
	ts := NewTestServer(t, NewStandardBackend(t, departure))
	ctx := context.Background()

	s, created := ts.Sessions.GetOrCreate(ctx, "direct")
	require.True(t, created)
	require.NoError(t, s.SelectSubscription(ctx, FamilySubscription))
	_, err := s.SelectRoute("SIN", "NRT")
	require.NoError(t, err)

	result, err := s.Search(ctx, usecase.Selections{
		DepartureDate:     departure,
		ReturnDate:        ret,
		ReturnDateTouched: true,
		Passengers:        &domain.PassengerCounts{Adult: 2, Child: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Outbound, 3)
	assert.Len(t, result.Return, 2)

	sent := ts.Backend.LastSearch()
	assert.Equal(t, "round_trip", sent.TripType)
	assert.Equal(t, FamilySubscription, sent.SubscriptionID)
	assert.Equal(t, ret, sent.ReturnDate)
	assert.Equal(t, map[string]int{"adult": 2, "child": 1, "infant": 0}, sent.Passengers)

	draft, err := s.Itinerary().Select(domain.LegOutbound, "SQ-SIN-2")
	require.NoError(t, err)
	assert.Nil(t, draft)
	assert.Equal(t, domain.AwaitingReturn, s.Itinerary().Snapshot().State)

	draft, err = s.Itinerary().Select(domain.LegReturn, "JL-NRT-1")
	require.NoError(t, err)
	require.NotNil(t, draft)
	assert.Equal(t, FamilySubscription, draft.SubscriptionID)
	assert.Equal(t, domain.TripRoundTrip, draft.TripType)
	assert.Equal(t, "SQ-SIN-2", draft.Outbound.ID)
	require.NotNil(t, draft.Return)
	assert.Equal(t, "JL-NRT-1", draft.Return.ID)
}

// TestSession_RestoredAfterRestart rebuilds the manager on the same store and
// checks the cached search survives.
func TestSession_RestoredAfterRestart(t *testing.T) {
	departure := testutil.FutureDate(9)
	before := NewTestServer(t, NewStandardBackend(t, departure))
	before.SelectRoute(t, session, FamilySubscription, "SIN", "NRT")

	resp := before.Search(session, httpAdapter.SearchFormRequest{DepartureDate: departure})
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	before.Sessions.Shutdown()

	after := newTestServerWithStore(t, before.Backend, before.Clock, before.Store)
	ctx := context.Background()

	s, created := after.Sessions.GetOrCreate(ctx, session)
	require.True(t, created)

	state, err := s.SearchState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.Result)
	assert.Equal(t, departure, state.Result.Request.DepartureDate)
	assert.Len(t, state.Result.Outbound, 3)

	draft, err := s.Itinerary().Select(domain.LegOutbound, "SQ-SIN-1")
	require.NoError(t, err)
	require.NotNil(t, draft, "one-way trip completes on the outbound pick")
	assert.Equal(t, 1, before.Backend.CallCount(mock.OpSearch), "restoring does not search again")
}

// TestSession_SweepEvictsIdle advances the clock past the idle TTL for one of
// two sessions.
func TestSession_SweepEvictsIdle(t *testing.T) {
	departure := testutil.FutureDate(3)
	ts := NewTestServer(t, NewStandardBackend(t, departure))
	ctx := context.Background()

	for _, id := range []string{"tab-idle", "tab-busy"} {
		ts.SelectRoute(t, id, FamilySubscription, "SIN", "NRT")
		resp := ts.Search(id, httpAdapter.SearchFormRequest{DepartureDate: departure})
		require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	}

	ts.Clock.Advance(usecase.DefaultIdleTTL - time.Minute)
	resp := ts.Do("tab-busy", http.MethodGet, "/api/v1/session/search", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	ts.Clock.Advance(time.Minute)

	assert.Equal(t, 1, ts.Sessions.Sweep(ctx))
	assert.Equal(t, 1, ts.Sessions.Len())

	_, err := ts.Sessions.Get("tab-idle")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, ok, err := sessionstore.NewSlot(ts.Store, "tab-idle").Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "evicted session's search is cleared")

	_, ok, err = sessionstore.NewSlot(ts.Store, "tab-busy").Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestSession_SubscriptionSwitchClearsSearch checks that results never outlive
// the subscription they were searched under.
func TestSession_SubscriptionSwitchClearsSearch(t *testing.T) {
	departure := testutil.FutureDate(6)
	fake := mock.NewBackend(t).
		WithSubscriptions(
			mock.Subscription{ID: "sub-a", PackageName: "Business", TripAllowance: 4},
			mock.Subscription{ID: "sub-b", PackageName: "Leisure", TripAllowance: 2},
		).
		WithRoutes("sub-a", mock.Route{ID: "ra", Origin: mock.Airport{Code: "SIN"}, Destination: mock.Airport{Code: "NRT"}}).
		WithRoutes("sub-b", mock.Route{ID: "rb", Origin: mock.Airport{Code: "CGK"}, Destination: mock.Airport{Code: "DPS"}}).
		WithFlights(mock.SampleFlights("SQ", "SIN", "NRT", departure, 2), nil)
	ts := NewTestServer(t, fake)
	ctx := context.Background()

	s, _ := ts.Sessions.GetOrCreate(ctx, "switch")
	require.NoError(t, s.SelectSubscription(ctx, "sub-a"))
	_, err := s.SelectRoute("SIN", "NRT")
	require.NoError(t, err)
	_, err = s.Search(ctx, usecase.Selections{DepartureDate: departure})
	require.NoError(t, err)

	// Reselecting the same subscription keeps the results
	require.NoError(t, s.SelectSubscription(ctx, "sub-a"))
	state, err := s.SearchState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.Result)

	require.NoError(t, s.SelectSubscription(ctx, "sub-b"))
	state, err = s.SearchState(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.Result)
	assert.Equal(t, domain.AwaitingOutbound, s.Itinerary().Snapshot().State)

	origins, err := s.Catalog().OriginsFor("sub-b")
	require.NoError(t, err)
	require.Len(t, origins, 1)
	assert.Equal(t, "CGK", origins[0].Code)

	_, err = s.Search(ctx, usecase.Selections{Origin: "SIN", Destination: "NRT", DepartureDate: departure})
	assert.ErrorIs(t, err, domain.ErrUnknownAirport, "the old route is not permitted under the new subscription")
}
