package http

import (
	"time"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
)

// SubscriptionsResponse lists the user's subscriptions.
type SubscriptionsResponse struct {
	Subscriptions []domain.Subscription `json:"subscriptions"`
	Selected      string                `json:"selected,omitempty"`
}

// AirportsResponse lists the selectable airports of the loaded subscription.
type AirportsResponse struct {
	SubscriptionID string           `json:"subscriptionId"`
	Origin         string           `json:"origin,omitempty"`
	Airports       []domain.Airport `json:"airports"`
}

// SearchStateDTO is the state of the results page.
type SearchStateDTO struct {
	Result          *SearchResultDTO   `json:"result"`
	Filters         domain.FilterState `json:"filters"`
	LastError       string             `json:"lastError,omitempty"`
	DebouncePending bool               `json:"debouncePending"`

	// Skipped is set when the form was still incomplete and nothing was sent
	Skipped bool `json:"skipped,omitempty"`
}

// SearchResultDTO is a cached search result.
type SearchResultDTO struct {
	Request    domain.SearchRequest `json:"request"`
	Outbound   []FlightOptionDTO    `json:"outbound"`
	Return     []FlightOptionDTO    `json:"return"`
	Empty      bool                 `json:"empty"`
	SearchedAt time.Time            `json:"searchedAt"`
}

// FlightOptionDTO is the display form of one flight option.
type FlightOptionDTO struct {
	ID           string         `json:"id"`
	Airline      AirlineDTO     `json:"airline"`
	FlightNumber string         `json:"flightNumber"`
	Departure    FlightPointDTO `json:"departure"`
	Arrival      FlightPointDTO `json:"arrival"`
	Duration     DurationDTO    `json:"duration"`
	Stops        int            `json:"stops"`
	FareClass    string         `json:"fareClass"`
}

// AirlineDTO represents airline information.
type AirlineDTO struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// FlightPointDTO represents a departure or arrival point.
type FlightPointDTO struct {
	Airport   string `json:"airport"`
	DateTime  string `json:"datetime"`
	Timestamp int64  `json:"timestamp"`
}

// DurationDTO represents flight duration.
type DurationDTO struct {
	TotalMinutes int    `json:"totalMinutes"`
	Formatted    string `json:"formatted"`
}

// ItineraryDTO is the state of the itinerary selection.
type ItineraryDTO struct {
	TripType  domain.TripType       `json:"tripType,omitempty"`
	State     domain.SelectionState `json:"state"`
	ActiveLeg domain.Leg            `json:"activeLeg"`
	Outbound  *FlightOptionDTO      `json:"outbound,omitempty"`
	Return    *FlightOptionDTO      `json:"return,omitempty"`
	Draft     *BookingDraftDTO      `json:"draft,omitempty"`
}

// BookingDraftDTO is handed to checkout once every leg is selected.
type BookingDraftDTO struct {
	SubscriptionID string                 `json:"subscriptionId"`
	TripType       domain.TripType        `json:"tripType"`
	Passengers     domain.PassengerCounts `json:"passengers"`
	Outbound       FlightOptionDTO        `json:"outbound"`
	Return         *FlightOptionDTO       `json:"return,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}
