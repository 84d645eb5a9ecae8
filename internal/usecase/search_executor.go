package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// FlightSearcher runs a search against the backend.
type FlightSearcher interface {
	SearchFlights(ctx context.Context, req domain.SearchRequest) (domain.SearchLegs, error)
}

// SearchCache is the session's single result slot.
type SearchCache interface {
	Load(ctx context.Context) (domain.SearchResult, bool, error)
	Replace(ctx context.Context, result domain.SearchResult) error
	Clear(ctx context.Context) error
}

// ResultListener is told about every result written to the cache.
type ResultListener func(result domain.SearchResult)

// SearchExecutor sends searches to the backend and keeps the latest result.
//
// Each Execute takes a sequence number. Only the response of the most recently
// issued request may write the cache; older responses return domain.ErrSuperseded.
type SearchExecutor struct {
	searcher FlightSearcher
	cache    SearchCache
	clock    timeutil.Clock
	errorTTL time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics

	mu        sync.Mutex
	seq       uint64
	cancel    context.CancelFunc
	lastErr   *domain.SearchError
	lastErrAt time.Time
	listeners []ResultListener
}

// NewSearchExecutor creates an executor writing to cache.
// An errorTTL <= 0 keeps the last error until it is dismissed.
func NewSearchExecutor(
	searcher FlightSearcher,
	cache SearchCache,
	clock timeutil.Clock,
	errorTTL time.Duration,
	log zerolog.Logger,
	m *metrics.Metrics,
) *SearchExecutor {
	if clock == nil {
		clock = timeutil.NewRealClock()
	}
	return &SearchExecutor{
		searcher: searcher,
		cache:    cache,
		clock:    clock,
		errorTTL: errorTTL,
		log:      log,
		metrics:  m,
	}
}

// OnResult registers fn to run after each cache write, in write order.
func (e *SearchExecutor) OnResult(fn ResultListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Execute runs req and stores its result.
//
// A "no flights found" answer is stored as an empty success. Any other failure
// returns a *domain.SearchError and leaves the cache untouched. Invalid requests
// are rejected before the backend is called.
func (e *SearchExecutor) Execute(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.seq++
	seq := e.seq
	if e.cancel != nil {
		e.cancel()
	}
	searchCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	start := e.clock.Now()
	legs, err := e.searcher.SearchFlights(searchCtx, req)

	e.mu.Lock()
	defer e.mu.Unlock()

	if seq != e.seq {
		cancel()
		e.metrics.SearchOutcome(metrics.OutcomeSuperseded)
		e.metrics.StaleResponse("search")
		e.log.Debug().
			Uint64("seq", seq).
			Uint64("latest", e.seq).
			Msg("Discarding stale search response")
		return nil, domain.ErrSuperseded
	}
	cancel()
	e.cancel = nil

	now := e.clock.Now()
	var result domain.SearchResult
	switch {
	case err == nil:
		result = domain.NewSearchResult(req, legs, now)
	case domain.IsNoResults(err):
		result = domain.EmptySearchResult(req, now)
	default:
		searchErr := domain.NewSearchError(err)
		e.lastErr = searchErr
		e.lastErrAt = now
		e.metrics.SearchOutcome(metrics.OutcomeError)
		e.log.Warn().
			Err(err).
			Str("origin", req.Origin).
			Str("destination", req.Destination).
			Msg("Search failed")
		return nil, searchErr
	}

	// The write must not be lost if the caller went away after the response arrived.
	if err := e.cache.Replace(context.WithoutCancel(ctx), result); err != nil {
		e.log.Error().Err(err).Msg("Failed to store search result")
	}
	e.lastErr = nil

	outcome := metrics.OutcomeSuccess
	if result.Empty {
		outcome = metrics.OutcomeEmpty
	}
	e.metrics.SearchOutcome(outcome)

	e.log.Info().
		Str("trip_type", string(req.TripType)).
		Str("origin", req.Origin).
		Str("destination", req.Destination).
		Int("outbound", len(result.Outbound)).
		Int("return", len(result.Return)).
		Dur("duration", now.Sub(start)).
		Msg("Search completed")

	for _, fn := range e.listeners {
		fn(result)
	}
	return &result, nil
}

// Current returns the cached result, read at the time of the call.
func (e *SearchExecutor) Current(ctx context.Context) (*domain.SearchResult, error) {
	result, ok, err := e.cache.Load(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

// Clear empties the cache and invalidates any search still in flight.
func (e *SearchExecutor) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.lastErr = nil
	return e.cache.Clear(ctx)
}

// LastError returns the error of the latest search, or nil once it was
// dismissed, superseded by a success, or expired.
func (e *SearchExecutor) LastError() *domain.SearchError {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastErr == nil {
		return nil
	}
	if e.errorTTL > 0 && e.clock.Now().Sub(e.lastErrAt) >= e.errorTTL {
		e.lastErr = nil
		return nil
	}
	return e.lastErr
}

// DismissError clears the last error.
func (e *SearchExecutor) DismissError() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = nil
}
