package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// DefaultDebounceWindow is the quiet period for duration-slider changes.
const DefaultDebounceWindow = 800 * time.Millisecond

// FilterCoordinator owns the filter panel and turns changes into searches.
//
// Discrete changes search at once with the merged state. Duration-range changes
// restart a debounce timer; when it fires, one search runs with the state merged
// so far.
type FilterCoordinator struct {
	builder       *ParamsBuilder
	executor      *SearchExecutor
	scheduler     timeutil.Scheduler
	debounce      time.Duration
	searchTimeout time.Duration
	log           zerolog.Logger
	metrics       *metrics.Metrics

	mu      sync.Mutex
	state   domain.FilterState
	base    *Selections
	pending timeutil.Timer
	gen     uint64
}

// NewFilterCoordinator creates a coordinator with the default filter state.
// searchTimeout bounds debounced searches, which run detached from any request.
func NewFilterCoordinator(
	builder *ParamsBuilder,
	executor *SearchExecutor,
	scheduler timeutil.Scheduler,
	debounce time.Duration,
	searchTimeout time.Duration,
	log zerolog.Logger,
	m *metrics.Metrics,
) *FilterCoordinator {
	if debounce <= 0 {
		debounce = DefaultDebounceWindow
	}
	return &FilterCoordinator{
		builder:       builder,
		executor:      executor,
		scheduler:     scheduler,
		debounce:      debounce,
		searchTimeout: searchTimeout,
		log:           log,
		metrics:       m,
		state:         domain.DefaultFilterState(),
	}
}

// Submit starts a new search from the form. Filters go back to their defaults.
func (c *FilterCoordinator) Submit(ctx context.Context, sel Selections) (*domain.SearchResult, error) {
	c.mu.Lock()
	c.stopPendingLocked()
	c.state = domain.DefaultFilterState()
	sel.Filters = nil
	base := sel
	c.base = &base
	c.mu.Unlock()

	return c.search(ctx, base, nil)
}

// Adopt seeds the base selections and filter panel from a request that was
// searched earlier, e.g. one restored from a durable cache. It does nothing once
// a base exists.
func (c *FilterCoordinator) Adopt(req domain.SearchRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.base != nil {
		return
	}
	passengers := req.Passengers
	c.base = &Selections{
		SubscriptionID:    req.SubscriptionID,
		Origin:            req.Origin,
		Destination:       req.Destination,
		DepartureDate:     req.DepartureDate,
		ReturnDate:        req.ReturnDate,
		ReturnDateTouched: req.IsRoundTrip(),
		Passengers:        &passengers,
	}

	c.state = domain.DefaultFilterState()
	if o := req.Filters; o != nil {
		patch := domain.FilterPatch{
			Airlines:         domain.Set(o.Airlines),
			MaxTransit:       domain.Set(o.MaxTransit),
			TravelClass:      domain.Set(o.TravelClass),
			DepartureBuckets: domain.Set(o.DepartureBuckets),
			ArrivalBuckets:   domain.Set(o.ArrivalBuckets),
		}
		if o.DurationRange != nil {
			patch.DurationRange = domain.Set(o.DurationRange)
		}
		c.state = c.state.Merge(patch)
	}
}

// ApplyFilterChange merges patch into the filter state and schedules a search.
// Before the first Submit the change is only recorded. Debounced searches report
// errors through the executor's last error.
func (c *FilterCoordinator) ApplyFilterChange(ctx context.Context, patch domain.FilterPatch) (*domain.SearchResult, error) {
	if patch.IsEmpty() {
		return nil, nil
	}

	c.mu.Lock()
	c.state = c.state.Merge(patch)
	if c.base == nil {
		c.mu.Unlock()
		return nil, nil
	}

	if patch.IsContinuous() {
		if c.stopPendingLocked() {
			c.metrics.DebounceCollapsed()
		}
		c.gen++
		gen := c.gen
		c.pending = c.scheduler.AfterFunc(c.debounce, func() {
			c.fireDebounced(gen)
		})
		c.mu.Unlock()
		return nil, nil
	}

	// The merged state already carries any pending slider value.
	c.stopPendingLocked()
	base := *c.base
	state := c.state
	c.mu.Unlock()

	return c.search(ctx, base, &state)
}

// ResetFilters restores the default panel and searches with the base fields only.
// A pending debounced search is cancelled first.
func (c *FilterCoordinator) ResetFilters(ctx context.Context) (*domain.SearchResult, error) {
	c.mu.Lock()
	c.stopPendingLocked()
	c.state = domain.DefaultFilterState()
	if c.base == nil {
		c.mu.Unlock()
		return nil, nil
	}
	base := *c.base
	c.mu.Unlock()

	return c.search(ctx, base, nil)
}

// Forget drops the base selections and filters, e.g. after a subscription switch.
func (c *FilterCoordinator) Forget() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopPendingLocked()
	c.state = domain.DefaultFilterState()
	c.base = nil
}

// State returns a copy of the filter panel.
func (c *FilterCoordinator) State() domain.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Merge(domain.FilterPatch{})
}

// DebouncePending reports whether a debounced search is waiting to fire.
func (c *FilterCoordinator) DebouncePending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *FilterCoordinator) fireDebounced(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.pending == nil || c.base == nil {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	base := *c.base
	state := c.state
	c.mu.Unlock()

	ctx := context.Background()
	if c.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.searchTimeout)
		defer cancel()
	}

	if _, err := c.search(ctx, base, &state); err != nil && !errors.Is(err, domain.ErrSuperseded) {
		c.log.Debug().Err(err).Msg("Debounced search did not complete")
	}
}

// search builds a request from base plus filters and runs it.
// The cached request fills in anything base leaves out.
func (c *FilterCoordinator) search(ctx context.Context, base Selections, filters *domain.FilterState) (*domain.SearchResult, error) {
	var fallback *domain.SearchRequest
	if current, err := c.executor.Current(ctx); err == nil && current != nil {
		fallback = &current.Request
	}

	sel := base
	sel.Filters = filters

	req, err := c.builder.Build(sel, fallback)
	if err != nil {
		if errors.Is(err, domain.ErrSkipSearch) {
			c.log.Debug().Msg("Search skipped, selections incomplete")
		}
		return nil, err
	}
	return c.executor.Execute(ctx, req)
}

// stopPendingLocked cancels the debounce timer. It reports whether one was waiting.
func (c *FilterCoordinator) stopPendingLocked() bool {
	if c.pending == nil {
		return false
	}
	c.pending.Stop()
	c.pending = nil
	c.gen++
	return true
}
