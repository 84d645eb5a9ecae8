package usecase

import (
	"fmt"
	"sync"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// ItineraryMachine walks the user through picking one option per leg.
//
//	one way:    AwaitingOutbound -> Complete
//	round trip: AwaitingOutbound -> AwaitingReturn -> Complete
//
// There are no backward transitions; a new search result starts a new machine.
type ItineraryMachine struct {
	clock timeutil.Clock

	mu        sync.Mutex
	result    *domain.SearchResult
	state     domain.SelectionState
	activeLeg domain.Leg
	outbound  *domain.FlightOption
	ret       *domain.FlightOption
	draft     *domain.BookingDraft
}

// NewItineraryMachine creates a machine for result. A nil result leaves it idle
// until Reset is called.
func NewItineraryMachine(result *domain.SearchResult, clock timeutil.Clock) *ItineraryMachine {
	if clock == nil {
		clock = timeutil.NewRealClock()
	}
	m := &ItineraryMachine{clock: clock}
	m.Reset(result)
	return m
}

// Reset discards any selection and starts over for result.
func (m *ItineraryMachine) Reset(result *domain.SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if result != nil {
		r := *result
		m.result = &r
	} else {
		m.result = nil
	}
	m.state = domain.AwaitingOutbound
	m.activeLeg = domain.LegOutbound
	m.outbound = nil
	m.ret = nil
	m.draft = nil
}

// Select picks optionID on leg. When the last leg is picked the machine
// completes and the booking draft is returned; otherwise the draft is nil.
func (m *ItineraryMachine) Select(leg domain.Leg, optionID string) (*domain.BookingDraft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.result == nil {
		return nil, domain.ErrNoActiveSearch
	}
	if m.state == domain.SelectionDone {
		return nil, domain.ErrSelectionComplete
	}
	if leg != m.awaitedLegLocked() {
		return nil, fmt.Errorf("%w: awaiting %s, got %s", domain.ErrWrongLeg, m.awaitedLegLocked(), leg)
	}

	option := m.result.LookupOption(leg, optionID)
	if option == nil {
		return nil, fmt.Errorf("%w: %s on %s leg", domain.ErrUnknownOption, optionID, leg)
	}
	picked := *option

	switch m.state {
	case domain.AwaitingOutbound:
		m.outbound = &picked
		if m.result.Request.IsRoundTrip() {
			m.state = domain.AwaitingReturn
			m.activeLeg = domain.LegReturn
			return nil, nil
		}
	case domain.AwaitingReturn:
		m.ret = &picked
	}

	m.state = domain.SelectionDone
	m.draft = &domain.BookingDraft{
		SubscriptionID: m.result.Request.SubscriptionID,
		TripType:       m.result.Request.TripType,
		Passengers:     m.result.Request.Passengers,
		Outbound:       *m.outbound,
		Return:         m.ret,
		CreatedAt:      m.clock.Now(),
	}
	draft := *m.draft
	return &draft, nil
}

// SetActiveLeg switches the tab being viewed. It does not change the state.
func (m *ItineraryMachine) SetActiveLeg(leg domain.Leg) error {
	if !leg.IsValid() {
		return domain.WrapInvalidRequest("unknown leg %q", leg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if leg == domain.LegReturn && (m.result == nil || !m.result.Request.IsRoundTrip()) {
		return fmt.Errorf("%w: one-way itinerary has no return leg", domain.ErrWrongLeg)
	}
	m.activeLeg = leg
	return nil
}

// Snapshot returns a copy of the current selection.
func (m *ItineraryMachine) Snapshot() domain.ItinerarySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := domain.ItinerarySnapshot{
		TripType:  domain.TripOneWay,
		State:     m.state,
		ActiveLeg: m.activeLeg,
		Outbound:  copyOption(m.outbound),
		Return:    copyOption(m.ret),
	}
	if m.result != nil {
		snap.TripType = m.result.Request.TripType
	}
	if m.draft != nil {
		d := *m.draft
		snap.Draft = &d
	}
	return snap
}

func (m *ItineraryMachine) awaitedLegLocked() domain.Leg {
	if m.state == domain.AwaitingReturn {
		return domain.LegReturn
	}
	return domain.LegOutbound
}

func copyOption(o *domain.FlightOption) *domain.FlightOption {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}
