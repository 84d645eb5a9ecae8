package usecase

import (
	"fmt"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/infrastructure/timeutil"
)

// Selections is the raw state of the search form.
// Empty strings and a nil Passengers mean "not chosen".
type Selections struct {
	SubscriptionID string
	Origin         string
	Destination    string
	DepartureDate  string
	ReturnDate     string

	// ReturnDateTouched is set once the user has interacted with the return-date control
	ReturnDateTouched bool

	Passengers *domain.PassengerCounts

	// Filters is the active filter panel; nil sends an unfiltered search
	Filters *domain.FilterState
}

// ParamsBuilder turns form selections into a validated SearchRequest.
type ParamsBuilder struct {
	timezone string
}

// NewParamsBuilder creates a builder. Timestamps are reduced to calendar dates in timezone.
func NewParamsBuilder(timezone string) *ParamsBuilder {
	return &ParamsBuilder{timezone: timezone}
}

// Build assembles a request. A field missing from sel falls back to the same
// field of fallback, the previous successful request, when one is given. The
// return date never falls back: a cleared control means a one-way search.
//
// It returns domain.ErrSkipSearch when subscription, origin, destination or
// departure date is still unknown, and a wrapped domain.ErrInvalidRequest when
// the assembled request breaks a rule.
func (b *ParamsBuilder) Build(sel Selections, fallback *domain.SearchRequest) (domain.SearchRequest, error) {
	var prev domain.SearchRequest
	if fallback != nil {
		prev = *fallback
	}

	departure, err := b.date("departureDate", sel.DepartureDate)
	if err != nil {
		return domain.SearchRequest{}, err
	}
	returnDate, err := b.date("returnDate", sel.ReturnDate)
	if err != nil {
		return domain.SearchRequest{}, err
	}

	req := domain.SearchRequest{
		SubscriptionID: pick(sel.SubscriptionID, prev.SubscriptionID),
		Origin:         pick(sel.Origin, prev.Origin),
		Destination:    pick(sel.Destination, prev.Destination),
		DepartureDate:  pick(departure, prev.DepartureDate),
		ReturnDate:     returnDate,
		Passengers:     b.passengers(sel.Passengers, fallback),
	}

	if sel.Filters != nil {
		if sel.Filters.SelectedDate != "" {
			selected, err := b.date("selectedDate", sel.Filters.SelectedDate)
			if err != nil {
				return domain.SearchRequest{}, err
			}
			req.DepartureDate = selected
		}
		req.Filters = sel.Filters.Overlay()
	}

	if req.SubscriptionID == "" || req.Origin == "" || req.Destination == "" || req.DepartureDate == "" {
		return domain.SearchRequest{}, domain.ErrSkipSearch
	}

	if req.ReturnDate != "" && sel.ReturnDateTouched {
		req.TripType = domain.TripRoundTrip
	} else {
		req.TripType = domain.TripOneWay
		req.ReturnDate = ""
	}

	if req.Filters != nil {
		if err := req.Filters.Validate(); err != nil {
			return domain.SearchRequest{}, err
		}
	}
	if err := req.Validate(); err != nil {
		return domain.SearchRequest{}, err
	}
	return req, nil
}

func (b *ParamsBuilder) date(field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	normalized, err := timeutil.NormalizeDate(value, b.timezone)
	if err != nil {
		return "", domain.WrapInvalidRequest("%s: %v", field, err)
	}
	return normalized, nil
}

func (b *ParamsBuilder) passengers(explicit *domain.PassengerCounts, fallback *domain.SearchRequest) domain.PassengerCounts {
	switch {
	case explicit != nil && explicit.Total() > 0:
		return *explicit
	case fallback != nil && fallback.Passengers.Total() > 0:
		return fallback.Passengers
	default:
		return domain.PassengerCounts{Adult: 1}
	}
}

func pick(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	return fallback
}

// DurationHoursToMinutes converts the slider's hour bounds into a minute range.
func DurationHoursToMinutes(minHours, maxHours float64) (domain.DurationRange, error) {
	dr := domain.DurationRange{
		MinMinutes: int(minHours * 60),
		MaxMinutes: int(maxHours * 60),
	}
	if !dr.IsValid() {
		return domain.DurationRange{}, fmt.Errorf("%w: duration range %.1fh-%.1fh", domain.ErrInvalidRequest, minHours, maxHours)
	}
	return dr, nil
}
