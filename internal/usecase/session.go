package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/metrics"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// Session is the orchestration state of one browser session.
// Its components are safe for concurrent use.
type Session struct {
	id      string
	backend domain.FlightBackend
	clock   timeutil.Clock
	log     zerolog.Logger

	catalog    *RouteCatalog
	executor   *SearchExecutor
	filters    *FilterCoordinator
	itinerary  *ItineraryMachine
	passengers *QuotaLedger
	routes     *QuotaLedger

	mu            sync.Mutex
	subscriptions map[string]domain.Subscription
	selected      string
	lastSeen      time.Time
}

// SearchState is everything the results page needs.
type SearchState struct {
	Result          *domain.SearchResult `json:"result,omitempty"`
	Filters         domain.FilterState   `json:"filters"`
	LastError       string               `json:"lastError,omitempty"`
	DebouncePending bool                 `json:"debouncePending"`
}

// NewSession wires the components of a session around cache.
func NewSession(
	id string,
	backend domain.FlightBackend,
	cache SearchCache,
	scheduler timeutil.Scheduler,
	cfg Config,
	log zerolog.Logger,
	m *metrics.Metrics,
) *Session {
	log = log.With().Str("session_id", id).Logger()

	s := &Session{
		id:       id,
		backend:  backend,
		clock:    scheduler,
		log:      log,
		lastSeen: scheduler.Now(),
	}

	s.catalog = NewRouteCatalog(backend, log, m)
	s.executor = NewSearchExecutor(backend, cache, scheduler, cfg.ErrorTTL, log, m)
	s.filters = NewFilterCoordinator(
		NewParamsBuilder(cfg.Timezone),
		s.executor,
		scheduler,
		cfg.DebounceWindow,
		cfg.SearchTimeout,
		log,
		m,
	)
	s.itinerary = NewItineraryMachine(nil, scheduler)
	s.executor.OnResult(func(result domain.SearchResult) {
		s.itinerary.Reset(&result)
	})

	s.passengers = NewQuotaLedger(domain.AttachmentPassenger, s.seedPassengers, backend.AddPassengersToSubscription, log, m)
	s.routes = NewQuotaLedger(domain.AttachmentRoute, s.seedRoutes, backend.LinkRoutesToSubscription, log, m)

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Catalog returns the route catalog.
func (s *Session) Catalog() *RouteCatalog { return s.catalog }

// Executor returns the search executor.
func (s *Session) Executor() *SearchExecutor { return s.executor }

// Filters returns the filter coordinator.
func (s *Session) Filters() *FilterCoordinator { return s.filters }

// Itinerary returns the itinerary selection machine.
func (s *Session) Itinerary() *ItineraryMachine { return s.itinerary }

// Ledger returns the quota ledger for kind.
func (s *Session) Ledger(kind domain.AttachmentKind) (*QuotaLedger, error) {
	switch kind {
	case domain.AttachmentPassenger:
		return s.passengers, nil
	case domain.AttachmentRoute:
		return s.routes, nil
	default:
		return nil, domain.WrapInvalidRequest("unknown attachment kind %q", kind)
	}
}

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.clock.Now()
}

// LastSeen returns the time of the latest activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Restore picks up a search persisted by an earlier process. The filter panel
// adopts its request so later filter changes re-search from it.
func (s *Session) Restore(ctx context.Context) error {
	current, err := s.executor.Current(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if current != nil {
		s.filters.Adopt(current.Request)
		s.itinerary.Reset(current)
	}
	return nil
}

// LoadSubscriptions fetches the user's subscriptions. Both quota ledgers are
// dropped so they reseed from the fresh list.
func (s *Session) LoadSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	subs, err := s.backend.FetchSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions: %w", err)
	}

	s.mu.Lock()
	s.subscriptions = make(map[string]domain.Subscription, len(subs))
	for _, sub := range subs {
		s.subscriptions[sub.ID] = sub
	}
	s.mu.Unlock()

	s.passengers.Reset()
	s.routes.Reset()

	s.log.Debug().Int("subscriptions", len(subs)).Msg("Subscriptions loaded")
	return subs, nil
}

// Subscription returns one subscription, loading the list when needed.
func (s *Session) Subscription(ctx context.Context, id string) (domain.Subscription, error) {
	s.mu.Lock()
	loaded := s.subscriptions != nil
	sub, ok := s.subscriptions[id]
	s.mu.Unlock()

	if !loaded {
		if _, err := s.LoadSubscriptions(ctx); err != nil {
			return domain.Subscription{}, err
		}
		s.mu.Lock()
		sub, ok = s.subscriptions[id]
		s.mu.Unlock()
	}
	if !ok {
		return domain.Subscription{}, fmt.Errorf("%w: %s", domain.ErrSubscriptionNotFound, id)
	}
	return sub, nil
}

// SelectedSubscription returns the ID of the selected subscription.
func (s *Session) SelectedSubscription() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SelectSubscription switches the session to subscription id and loads its routes.
// Switching to a subscription other than the one the cached search belongs to
// clears that search, the filters and the itinerary.
func (s *Session) SelectSubscription(ctx context.Context, id string) error {
	if id != "" {
		sub, err := s.Subscription(ctx, id)
		if err != nil {
			return err
		}
		if sub.Expired {
			return fmt.Errorf("%w: %s", domain.ErrSubscriptionExpired, id)
		}
	}

	s.mu.Lock()
	changed := s.selected != id
	s.selected = id
	s.mu.Unlock()

	if changed {
		current, err := s.executor.Current(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to read cached search")
		}
		if current == nil || current.Request.SubscriptionID != id {
			if err := s.executor.Clear(ctx); err != nil {
				s.log.Warn().Err(err).Msg("Failed to clear cached search")
			}
			s.filters.Forget()
			s.itinerary.Reset(nil)
		}
	}

	return s.catalog.SelectSubscription(ctx, id)
}

// SelectRoute picks origin and destination from the loaded routes.
func (s *Session) SelectRoute(origin, destination string) (RouteSelection, error) {
	if err := s.catalog.SelectOrigin(origin); err != nil {
		return RouteSelection{}, err
	}
	if err := s.catalog.SelectDestination(destination); err != nil {
		return RouteSelection{}, err
	}
	return s.catalog.Selection(), nil
}

// Search submits a new search. Blank subscription, origin and destination are
// taken from the session's current selections.
func (s *Session) Search(ctx context.Context, sel Selections) (*domain.SearchResult, error) {
	route := s.catalog.Selection()
	if sel.SubscriptionID == "" {
		sel.SubscriptionID = s.SelectedSubscription()
	}
	if sel.Origin == "" {
		sel.Origin = route.Origin
	}
	if sel.Destination == "" {
		sel.Destination = route.Destination
	}

	if sel.SubscriptionID != "" {
		sub, err := s.Subscription(ctx, sel.SubscriptionID)
		if err != nil {
			return nil, err
		}
		if sub.Expired {
			return nil, fmt.Errorf("%w: %s", domain.ErrSubscriptionExpired, sub.ID)
		}
	}
	if sel.Origin != "" && sel.Destination != "" && !s.catalog.Permits(sel.SubscriptionID, sel.Origin, sel.Destination) {
		return nil, fmt.Errorf("%w: %w: %s-%s", domain.ErrInvalidRequest, domain.ErrUnknownAirport, sel.Origin, sel.Destination)
	}

	return s.filters.Submit(ctx, sel)
}

// SearchState reads the cached search together with filters and the last error.
func (s *Session) SearchState(ctx context.Context) (SearchState, error) {
	result, err := s.executor.Current(ctx)
	if err != nil {
		return SearchState{}, err
	}

	state := SearchState{
		Result:          result,
		Filters:         s.filters.State(),
		DebouncePending: s.filters.DebouncePending(),
	}
	if se := s.executor.LastError(); se != nil {
		state.LastError = se.Message
	}
	return state, nil
}

// CommitAttachments commits the pending items of kind. A successful route commit
// reloads the catalog when it concerns the selected subscription.
func (s *Session) CommitAttachments(ctx context.Context, kind domain.AttachmentKind, subscriptionID string) error {
	ledger, err := s.Ledger(kind)
	if err != nil {
		return err
	}
	if err := ledger.Commit(ctx, subscriptionID); err != nil {
		return err
	}

	if kind == domain.AttachmentRoute && subscriptionID == s.SelectedSubscription() {
		if err := s.catalog.Refresh(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Failed to refresh routes after commit")
		}
	}
	return nil
}

// Close stops timers owned by the session.
func (s *Session) Close() {
	s.filters.Forget()
}

func (s *Session) seedPassengers(ctx context.Context, subscriptionID string) (LedgerSeed, error) {
	sub, err := s.Subscription(ctx, subscriptionID)
	if err != nil {
		return LedgerSeed{}, err
	}
	return LedgerSeed{
		Allowance: sub.Allowance(domain.AttachmentPassenger),
		Committed: sub.Members,
	}, nil
}

func (s *Session) seedRoutes(ctx context.Context, subscriptionID string) (LedgerSeed, error) {
	sub, err := s.Subscription(ctx, subscriptionID)
	if err != nil {
		return LedgerSeed{}, err
	}
	linked, err := s.backend.FetchLinkedRoutes(ctx, subscriptionID)
	if err != nil {
		return LedgerSeed{}, fmt.Errorf("fetch linked routes: %w", err)
	}

	committed := make([]domain.Attachment, 0, len(linked))
	for _, r := range linked {
		committed = append(committed, r.AsAttachment())
	}
	return LedgerSeed{
		Allowance: sub.Allowance(domain.AttachmentRoute),
		Committed: committed,
	}, nil
}
