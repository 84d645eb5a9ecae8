package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
)

// RouteFetcher loads the routes a subscription may fly.
type RouteFetcher interface {
	FetchLinkedRoutes(ctx context.Context, subscriptionID string) ([]domain.RoutePair, error)
}

// RouteSelection is the current origin/destination choice.
type RouteSelection struct {
	SubscriptionID string `json:"subscriptionId"`
	Origin         string `json:"origin,omitempty"`
	Destination    string `json:"destination,omitempty"`
	Loaded         bool   `json:"loaded"`
}

// RouteCatalog constrains origin and destination choices to a subscription's routes.
//
// Route fetches follow "last request wins": every fetch is stamped with a
// sequence number and a response whose stamp is no longer the latest is dropped.
// Starting a fetch cancels the context of the one before it.
type RouteCatalog struct {
	fetcher RouteFetcher
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	seq         uint64
	lastStarted string
	cancel      context.CancelFunc
	loadedID    string
	routes      []domain.RoutePair
	origin      string
	destination string
	lastErr     error
}

// NewRouteCatalog creates an empty catalog.
func NewRouteCatalog(fetcher RouteFetcher, log zerolog.Logger, m *metrics.Metrics) *RouteCatalog {
	return &RouteCatalog{
		fetcher: fetcher,
		log:     log,
		metrics: m,
	}
}

// SelectSubscription loads the routes of subscriptionID. A repeated call for the
// subscription whose fetch was last started is a no-op. It returns
// domain.ErrSuperseded when a newer selection overtook this one.
func (c *RouteCatalog) SelectSubscription(ctx context.Context, subscriptionID string) error {
	c.mu.Lock()
	if subscriptionID == c.lastStarted {
		c.mu.Unlock()
		return nil
	}

	c.seq++
	seq := c.seq
	c.lastStarted = subscriptionID
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loadedID = ""
	c.routes = nil
	c.lastErr = nil

	if subscriptionID == "" {
		c.origin, c.destination = "", ""
		c.mu.Unlock()
		return nil
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	routes, err := c.fetcher.FetchLinkedRoutes(fetchCtx, subscriptionID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.metrics.StaleResponse("routes")
		c.log.Debug().
			Str("subscription_id", subscriptionID).
			Uint64("seq", seq).
			Msg("Discarding stale route response")
		return domain.ErrSuperseded
	}

	cancel()
	c.cancel = nil

	if err != nil {
		// Forget the attempt so the same subscription can be retried.
		c.lastStarted = ""
		c.lastErr = err
		c.log.Warn().Err(err).Str("subscription_id", subscriptionID).Msg("Route fetch failed")
		return fmt.Errorf("fetch routes: %w", err)
	}

	c.loadedID = subscriptionID
	c.routes = routes
	c.reconcileLocked()

	c.log.Debug().
		Str("subscription_id", subscriptionID).
		Int("routes", len(routes)).
		Msg("Routes loaded")
	return nil
}

// Refresh fetches the routes of the current subscription again.
func (c *RouteCatalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	id := c.lastStarted
	c.lastStarted = ""
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	return c.SelectSubscription(ctx, id)
}

// OriginsFor returns the permitted origins of a loaded subscription.
func (c *RouteCatalog) OriginsFor(subscriptionID string) ([]domain.Airport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireLoadedLocked(subscriptionID); err != nil {
		return nil, err
	}
	return DeriveOrigins(c.routes), nil
}

// DestinationsFor returns the destinations reachable from originCode.
func (c *RouteCatalog) DestinationsFor(subscriptionID, originCode string) ([]domain.Airport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireLoadedLocked(subscriptionID); err != nil {
		return nil, err
	}
	return DeriveDestinations(c.routes, originCode), nil
}

// SelectOrigin picks an origin. The destination is kept only if it is still reachable.
func (c *RouteCatalog) SelectOrigin(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loadedID == "" {
		return domain.ErrRoutesNotLoaded
	}
	if code == "" {
		c.origin, c.destination = "", ""
		return nil
	}
	if !containsAirport(DeriveOrigins(c.routes), code) {
		return fmt.Errorf("%w: origin %q", domain.ErrUnknownAirport, code)
	}

	c.origin = code
	if c.destination != "" && !containsAirport(DeriveDestinations(c.routes, code), c.destination) {
		c.destination = ""
	}
	return nil
}

// SelectDestination picks a destination reachable from the selected origin.
func (c *RouteCatalog) SelectDestination(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loadedID == "" {
		return domain.ErrRoutesNotLoaded
	}
	if code == "" {
		c.destination = ""
		return nil
	}
	if c.origin == "" {
		return fmt.Errorf("%w: select an origin first", domain.ErrUnknownAirport)
	}
	if !containsAirport(DeriveDestinations(c.routes, c.origin), code) {
		return fmt.Errorf("%w: destination %q from %q", domain.ErrUnknownAirport, code, c.origin)
	}

	c.destination = code
	return nil
}

// Selection returns the current choice.
func (c *RouteCatalog) Selection() RouteSelection {
	c.mu.Lock()
	defer c.mu.Unlock()

	return RouteSelection{
		SubscriptionID: c.lastStarted,
		Origin:         c.origin,
		Destination:    c.destination,
		Loaded:         c.loadedID != "" && c.loadedID == c.lastStarted,
	}
}

// Permits reports whether the loaded routes allow origin -> destination.
// When routes for subscriptionID are not loaded it returns true and leaves the
// decision to the backend.
func (c *RouteCatalog) Permits(subscriptionID, origin, destination string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loadedID == "" || c.loadedID != subscriptionID {
		return true
	}
	return containsAirport(DeriveDestinations(c.routes, origin), destination)
}

// LastError returns the error of the latest failed fetch.
func (c *RouteCatalog) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *RouteCatalog) requireLoadedLocked(subscriptionID string) error {
	if c.loadedID == "" || c.loadedID != subscriptionID {
		return fmt.Errorf("%w: %s", domain.ErrRoutesNotLoaded, subscriptionID)
	}
	return nil
}

// reconcileLocked clears selections the refreshed routes no longer permit.
func (c *RouteCatalog) reconcileLocked() {
	if c.origin != "" && !containsAirport(DeriveOrigins(c.routes), c.origin) {
		c.origin = ""
		c.destination = ""
		return
	}
	if c.destination != "" && !containsAirport(DeriveDestinations(c.routes, c.origin), c.destination) {
		c.destination = ""
	}
}

// DeriveOrigins returns the distinct origin airports, in first-seen order.
func DeriveOrigins(routes []domain.RoutePair) []domain.Airport {
	seen := make(map[string]bool, len(routes))
	out := make([]domain.Airport, 0, len(routes))
	for _, r := range routes {
		key := r.Origin.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r.Origin)
	}
	return out
}

// DeriveDestinations returns the distinct destinations of routes leaving originCode.
// Origins are matched by airport code, or by raw name when the code is absent.
func DeriveDestinations(routes []domain.RoutePair, originCode string) []domain.Airport {
	seen := make(map[string]bool)
	out := make([]domain.Airport, 0)
	for _, r := range routes {
		if !r.Origin.Matches(originCode) {
			continue
		}
		key := r.Destination.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r.Destination)
	}
	return out
}

func containsAirport(airports []domain.Airport, key string) bool {
	for _, a := range airports {
		if a.Matches(key) {
			return true
		}
	}
	return false
}
