package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// slotRegistry hands out one memoryCache per session ID.
type slotRegistry struct {
	mu    sync.Mutex
	slots map[string]*memoryCache
}

func (r *slotRegistry) factory(sessionID string) SearchCache {
	return r.slot(sessionID)
}

func (r *slotRegistry) slot(sessionID string) *memoryCache {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots == nil {
		r.slots = make(map[string]*memoryCache)
	}
	if _, ok := r.slots[sessionID]; !ok {
		r.slots[sessionID] = &memoryCache{}
	}
	return r.slots[sessionID]
}

func newTestManager(t *testing.T, idleTTL time.Duration) (*SessionManager, *slotRegistry, *timeutil.MockClock) {
	t.Helper()

	backend := domain.NewMockFlightBackend(gomock.NewController(t))
	return newTestManagerWithBackend(t, backend, idleTTL)
}

func newTestManagerWithBackend(t *testing.T, backend domain.FlightBackend, idleTTL time.Duration) (*SessionManager, *slotRegistry, *timeutil.MockClock) {
	t.Helper()

	registry := &slotRegistry{}
	clock := timeutil.NewMockClock(testNow)
	m, _ := metrics.NewIsolated()

	manager := NewSessionManager(backend, registry.factory, clock, &Config{IdleTTL: idleTTL}, zerolog.Nop(), m)
	return manager, registry, clock
}

func TestSessionManager_GetOrCreate(t *testing.T) {
	manager, _, _ := newTestManager(t, time.Minute)
	ctx := context.Background()

	generated, created := manager.GetOrCreate(ctx, "")
	require.True(t, created)
	_, err := uuid.Parse(generated.ID())
	assert.NoError(t, err, "blank IDs get a UUID")

	again, created := manager.GetOrCreate(ctx, generated.ID())
	assert.False(t, created)
	assert.Same(t, generated, again)

	named, created := manager.GetOrCreate(ctx, "tab-42")
	assert.True(t, created)
	assert.Equal(t, "tab-42", named.ID())
	assert.Equal(t, 2, manager.Len())

	got, err := manager.Get("tab-42")
	require.NoError(t, err)
	assert.Same(t, named, got)

	_, err = manager.Get("missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionManager_RestoresPersistedSearch(t *testing.T) {
	manager, registry, _ := newTestManager(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, registry.slot("restored").Replace(ctx, *roundTripResult()))

	session, created := manager.GetOrCreate(ctx, "restored")
	require.True(t, created)

	snap := session.Itinerary().Snapshot()
	assert.Equal(t, domain.TripRoundTrip, snap.TripType)
	assert.Equal(t, domain.AwaitingOutbound, snap.State)
}

func TestSessionManager_RestoredSessionResearchesOnFilterChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := domain.NewMockFlightBackend(ctrl)
	manager, registry, _ := newTestManagerWithBackend(t, backend, time.Minute)
	ctx := context.Background()

	persisted := roundTripResult()
	persisted.Request.Filters = &domain.FilterOverlay{Airlines: []string{"EK"}}
	require.NoError(t, registry.slot("restored").Replace(ctx, *persisted))

	var got domain.SearchRequest
	backend.EXPECT().SearchFlights(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req domain.SearchRequest) (domain.SearchLegs, error) {
			got = req
			return roundTripLegs(), nil
		}).
		Times(1)

	session, created := manager.GetOrCreate(ctx, "restored")
	require.True(t, created)
	assert.Equal(t, []string{"EK"}, session.Filters().State().Airlines, "filter panel comes back with the search")

	result, err := session.Filters().ApplyFilterChange(ctx, domain.FilterPatch{TravelClass: domain.Set("business")})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, got.IsRoundTrip())
	assert.Equal(t, "2025-08-10", got.ReturnDate)
	assert.Equal(t, "SIN", got.Origin)
	assert.Equal(t, "DXB", got.Destination)
	assert.Equal(t, "sub-1", got.SubscriptionID)
	require.NotNil(t, got.Filters)
	assert.Equal(t, "business", got.Filters.TravelClass)
	assert.Equal(t, []string{"EK"}, got.Filters.Airlines)
}

func TestSessionManager_ConcurrentCreateSeesRestoredSearch(t *testing.T) {
	manager, registry, _ := newTestManager(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, registry.slot("shared").Replace(ctx, *roundTripResult()))

	const callers = 8
	sessions := make([]*Session, callers)
	createdCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, created := manager.GetOrCreate(ctx, "shared")
			// Whoever gets the session must already see the restored itinerary.
			snap := s.Itinerary().Snapshot()
			assert.Equal(t, domain.TripRoundTrip, snap.TripType)
			assert.Equal(t, domain.AwaitingOutbound, snap.State)

			mu.Lock()
			sessions[i] = s
			if created {
				createdCount++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	assert.Equal(t, 1, manager.Len())
	for _, s := range sessions[1:] {
		assert.Same(t, sessions[0], s)
	}
}

func TestSessionManager_SweepEvictsIdleSessions(t *testing.T) {
	manager, registry, clock := newTestManager(t, 10*time.Minute)
	ctx := context.Background()

	idle, _ := manager.GetOrCreate(ctx, "idle")
	active, _ := manager.GetOrCreate(ctx, "active")
	require.NoError(t, registry.slot("idle").Replace(ctx, *roundTripResult()))

	clock.Advance(6 * time.Minute)
	active.Touch()
	assert.Zero(t, manager.Sweep(ctx))

	clock.Advance(4 * time.Minute)
	assert.Equal(t, 1, manager.Sweep(ctx))

	_, err := manager.Get(idle.ID())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Nil(t, registry.slot("idle").current(), "evicted sessions lose their cached search")

	_, err = manager.Get(active.ID())
	assert.NoError(t, err)
}

func TestSessionManager_Remove(t *testing.T) {
	manager, registry, _ := newTestManager(t, time.Minute)
	ctx := context.Background()

	session, _ := manager.GetOrCreate(ctx, "s1")
	require.NoError(t, registry.slot("s1").Replace(ctx, *oneWayResult()))

	require.NoError(t, manager.Remove(ctx, session.ID()))
	assert.Nil(t, registry.slot("s1").current())
	assert.Zero(t, manager.Len())

	assert.ErrorIs(t, manager.Remove(ctx, "s1"), domain.ErrSessionNotFound)
}

func TestSessionManager_RunStopsWithContext(t *testing.T) {
	manager, _, _ := newTestManager(t, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestResolveConfig(t *testing.T) {
	assert.Equal(t, DefaultConfig(), resolveConfig(nil))

	cfg := resolveConfig(&Config{DebounceWindow: 300 * time.Millisecond, Timezone: "Asia/Jakarta"})
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceWindow)
	assert.Equal(t, "Asia/Jakarta", cfg.Timezone)
	assert.Equal(t, DefaultSearchTimeout, cfg.SearchTimeout)
	assert.Equal(t, DefaultIdleTTL, cfg.IdleTTL)
	assert.Zero(t, cfg.ErrorTTL, "zero keeps errors until dismissed")
}
