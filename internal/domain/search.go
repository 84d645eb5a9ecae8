package domain

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the wire format for search dates.
const DateLayout = "2006-01-02"

// MaxPassengers is the upper bound on adults + children + infants.
const MaxPassengers = 9

// TripType distinguishes one-way from round-trip searches.
type TripType string

// Available trip types.
const (
	TripOneWay    TripType = "one_way"
	TripRoundTrip TripType = "round_trip"
)

// PassengerCounts holds the passenger mix of a search.
type PassengerCounts struct {
	Adult  int `json:"adult"`
	Child  int `json:"child"`
	Infant int `json:"infant"`
}

// Total returns the number of travellers.
func (p PassengerCounts) Total() int {
	return p.Adult + p.Child + p.Infant
}

// Validate checks the passenger mix rules.
func (p PassengerCounts) Validate() error {
	if p.Adult < 1 {
		return fmt.Errorf("%w: at least one adult is required", ErrInvalidRequest)
	}
	if p.Child < 0 || p.Infant < 0 {
		return fmt.Errorf("%w: passenger counts cannot be negative", ErrInvalidRequest)
	}
	if p.Total() > MaxPassengers {
		return fmt.Errorf("%w: passengers cannot exceed %d", ErrInvalidRequest, MaxPassengers)
	}
	return nil
}

// SearchRequest is a fully resolved search ready to be sent to the backend.
type SearchRequest struct {
	TripType       TripType        `json:"tripType"`
	SubscriptionID string          `json:"subscriptionId"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	DepartureDate  string          `json:"departureDate"`
	ReturnDate     string          `json:"returnDate,omitempty"`
	Passengers     PassengerCounts `json:"passengers"`

	// Filters is the optional overlay; nil means an unfiltered base search
	Filters *FilterOverlay `json:"filters,omitempty"`
}

// dateRegex matches dates in YYYY-MM-DD format.
var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Validate checks the request invariants.
// Returns a wrapped ErrInvalidRequest error if validation fails.
func (r *SearchRequest) Validate() error {
	if r.SubscriptionID == "" {
		return fmt.Errorf("%w: subscriptionId is required", ErrInvalidRequest)
	}
	if r.Origin == "" {
		return fmt.Errorf("%w: origin is required", ErrInvalidRequest)
	}
	if r.Destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidRequest)
	}
	if r.Origin == r.Destination {
		return fmt.Errorf("%w: origin and destination must be different", ErrInvalidRequest)
	}

	departure, err := parseDate("departureDate", r.DepartureDate)
	if err != nil {
		return err
	}

	switch r.TripType {
	case TripOneWay:
		if r.ReturnDate != "" {
			return fmt.Errorf("%w: one-way search cannot carry a returnDate", ErrInvalidRequest)
		}
	case TripRoundTrip:
		if r.ReturnDate == "" {
			return fmt.Errorf("%w: round-trip search requires a returnDate", ErrInvalidRequest)
		}
		ret, err := parseDate("returnDate", r.ReturnDate)
		if err != nil {
			return err
		}
		if ret.Before(departure) {
			return fmt.Errorf("%w: returnDate must not be before departureDate", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown trip type %q", ErrInvalidRequest, r.TripType)
	}

	if err := r.Passengers.Validate(); err != nil {
		return err
	}

	if r.Filters != nil && !r.Filters.DurationRange.IsValid() {
		return fmt.Errorf("%w: duration range must satisfy 0 <= min <= max", ErrInvalidRequest)
	}

	return nil
}

// IsRoundTrip reports whether the request has a return leg.
func (r *SearchRequest) IsRoundTrip() bool {
	return r.TripType == TripRoundTrip
}

// WithoutFilters returns a copy of the request carrying only the base fields.
func (r SearchRequest) WithoutFilters() SearchRequest {
	r.Filters = nil
	return r
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	if !dateRegex.MatchString(value) {
		return time.Time{}, fmt.Errorf("%w: %s must be in YYYY-MM-DD format, got %q", ErrInvalidRequest, field, value)
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s is not a valid date: %s", ErrInvalidRequest, field, value)
	}
	return t, nil
}

// SearchLegs is the raw backend answer. Either list may be nil.
type SearchLegs struct {
	Outbound []FlightOption `json:"outbound"`
	Return   []FlightOption `json:"return,omitempty"`
}

// SearchResult is the normalised outcome of a search, stored in the session cache.
type SearchResult struct {
	Request  SearchRequest  `json:"request"`
	Outbound []FlightOption `json:"outbound"`
	Return   []FlightOption `json:"return"`

	// Empty is set when the backend reported that nothing matched
	Empty bool `json:"empty"`

	SearchedAt time.Time `json:"searchedAt"`
}

// NewSearchResult builds a result with absent lists normalised to empty slices.
func NewSearchResult(req SearchRequest, legs SearchLegs, at time.Time) SearchResult {
	outbound := legs.Outbound
	if outbound == nil {
		outbound = []FlightOption{}
	}
	ret := legs.Return
	if ret == nil {
		ret = []FlightOption{}
	}
	return SearchResult{
		Request:    req,
		Outbound:   outbound,
		Return:     ret,
		Empty:      len(outbound) == 0 && len(ret) == 0,
		SearchedAt: at,
	}
}

// EmptySearchResult is the cached shape of a "no flights found" answer.
func EmptySearchResult(req SearchRequest, at time.Time) SearchResult {
	return NewSearchResult(req, SearchLegs{}, at)
}

// Options returns the result list for the given leg.
func (r *SearchResult) Options(leg Leg) []FlightOption {
	if leg == LegReturn {
		return r.Return
	}
	return r.Outbound
}
