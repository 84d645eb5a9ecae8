package sessionstore

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

func sampleResult(origin string) domain.SearchResult {
	req := domain.SearchRequest{
		TripType:       domain.TripOneWay,
		SubscriptionID: "sub-1",
		Origin:         origin,
		Destination:    "DXB",
		DepartureDate:  "2025-08-01",
		Passengers:     domain.PassengerCounts{Adult: 1},
	}
	return domain.NewSearchResult(req, domain.SearchLegs{
		Outbound: []domain.FlightOption{{ID: "o1", Carrier: "EK", FlightNumber: "EK-353"}},
	}, time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC))
}

func TestMemoryStore_ReplaceAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, nil)

	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Replace(ctx, "s1", sampleResult("SIN")))
	require.NoError(t, store.Replace(ctx, "s1", sampleResult("KUL")))

	got, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "KUL", got.Request.Origin, "second write replaces the first")
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, nil)

	require.NoError(t, store.Replace(ctx, "a", sampleResult("SIN")))

	_, ok, err := store.Load(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, nil)

	require.NoError(t, store.Replace(ctx, "s1", sampleResult("SIN")))
	require.NoError(t, store.Clear(ctx, "s1"))

	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := timeutil.NewMockClock(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	store := NewMemoryStore(30*time.Minute, clock)

	require.NoError(t, store.Replace(ctx, "s1", sampleResult("SIN")))

	clock.Advance(29 * time.Minute)
	_, ok, _ := store.Load(ctx, "s1")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok, _ = store.Load(ctx, "s1")
	assert.False(t, ok)
}

func TestSlot_BindsSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, nil)
	slot := NewSlot(store, "bound")

	require.NoError(t, slot.Replace(ctx, sampleResult("SIN")))

	got, ok, err := store.Load(ctx, "bound")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SIN", got.Request.Origin)

	require.NoError(t, slot.Clear(ctx))
	_, ok, _ = slot.Load(ctx)
	assert.False(t, ok)
}

func TestDecodeResult_NormalisesNullLegs(t *testing.T) {
	data, err := json.Marshal(map[string]interface{}{
		"request":  map[string]string{"origin": "SIN"},
		"outbound": nil,
		"return":   nil,
	})
	require.NoError(t, err)

	got, err := decodeResult(data)
	require.NoError(t, err)
	assert.NotNil(t, got.Outbound)
	assert.NotNil(t, got.Return)
	assert.Empty(t, got.Outbound)
}

func TestDecodeResult_Invalid(t *testing.T) {
	_, err := decodeResult([]byte("{not json"))
	assert.Error(t, err)
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "flight-session:search:abc", slotKey("abc"))
}

// TestRedisStore_RoundTrip runs only when a Redis instance is available.
func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, RedisConfig{Addr: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer store.Close()

	sessionID := uuid.NewString()
	defer store.Clear(ctx, sessionID)

	require.NoError(t, store.Replace(ctx, sessionID, sampleResult("SIN")))

	got, ok, err := store.Load(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SIN", got.Request.Origin)
	assert.Len(t, got.Outbound, 1)
}
