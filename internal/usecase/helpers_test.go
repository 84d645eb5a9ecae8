package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

var testNow = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func intPtr(i int) *int { return &i }

func airport(code, name string) domain.Airport {
	return domain.Airport{Code: code, Name: name}
}

// testRoutes contains a duplicate pair and a code-less airport on purpose.
func testRoutes() []domain.RoutePair {
	return []domain.RoutePair{
		{ID: "r1", Origin: airport("SIN", "Changi"), Destination: airport("DXB", "Dubai International")},
		{ID: "r2", Origin: airport("SIN", "Changi"), Destination: airport("LHR", "Heathrow")},
		{ID: "r3", Origin: airport("KUL", "Kuala Lumpur International"), Destination: airport("DXB", "Dubai International")},
		{ID: "r4", Origin: airport("SIN", "Changi"), Destination: airport("DXB", "Dubai International")},
		{ID: "r5", Origin: airport("", "Seletar"), Destination: airport("KUL", "Kuala Lumpur International")},
	}
}

// createTestOption creates a flight option for testing with the given parameters.
func createTestOption(id, origin, destination string, departure time.Time) domain.FlightOption {
	return domain.FlightOption{
		ID:              id,
		Carrier:         "EK",
		CarrierName:     "Emirates",
		FlightNumber:    "EK-" + id,
		Origin:          origin,
		Destination:     destination,
		DepartureTime:   departure,
		ArrivalTime:     departure.Add(7 * time.Hour),
		DurationMinutes: 420,
		FareClass:       "economy",
	}
}

func roundTripRequest() domain.SearchRequest {
	return domain.SearchRequest{
		TripType:       domain.TripRoundTrip,
		SubscriptionID: "sub-1",
		Origin:         "SIN",
		Destination:    "DXB",
		DepartureDate:  "2025-08-01",
		ReturnDate:     "2025-08-10",
		Passengers:     domain.PassengerCounts{Adult: 1},
	}
}

func oneWayRequest() domain.SearchRequest {
	req := roundTripRequest()
	req.TripType = domain.TripOneWay
	req.ReturnDate = ""
	return req
}

func roundTripLegs() domain.SearchLegs {
	return domain.SearchLegs{
		Outbound: []domain.FlightOption{
			createTestOption("out-1", "SIN", "DXB", time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)),
		},
		Return: []domain.FlightOption{
			createTestOption("ret-1", "DXB", "SIN", time.Date(2025, 8, 10, 21, 0, 0, 0, time.UTC)),
		},
	}
}

// memoryCache is a SearchCache that records every write.
type memoryCache struct {
	mu     sync.Mutex
	result *domain.SearchResult
	writes []domain.SearchRequest
}

func (c *memoryCache) Load(context.Context) (domain.SearchResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.SearchResult{}, false, nil
	}
	return *c.result, true, nil
}

func (c *memoryCache) Replace(_ context.Context, result domain.SearchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = &result
	c.writes = append(c.writes, result.Request)
	return nil
}

func (c *memoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
	return nil
}

func (c *memoryCache) current() *domain.SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

type searchCall struct {
	At      time.Time
	Request domain.SearchRequest
}

// recordingSearcher answers every search with the same legs and remembers when it was called.
type recordingSearcher struct {
	clock timeutil.Clock
	legs  domain.SearchLegs
	err   error

	mu    sync.Mutex
	calls []searchCall
}

func (s *recordingSearcher) SearchFlights(_ context.Context, req domain.SearchRequest) (domain.SearchLegs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, searchCall{At: s.clock.Now(), Request: req})
	return s.legs, s.err
}

func (s *recordingSearcher) Calls() []searchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]searchCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *recordingSearcher) last() searchCall {
	calls := s.Calls()
	return calls[len(calls)-1]
}
