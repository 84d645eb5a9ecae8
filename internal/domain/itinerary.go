package domain

import "time"

// Leg is one direction of travel.
type Leg string

// Available legs.
const (
	LegOutbound Leg = "outbound"
	LegReturn   Leg = "return"
)

// IsValid checks if the leg is a known value.
func (l Leg) IsValid() bool {
	return l == LegOutbound || l == LegReturn
}

// SelectionState is the position of the itinerary selection machine.
type SelectionState string

// Selection states.
const (
	AwaitingOutbound SelectionState = "awaiting_outbound"
	AwaitingReturn   SelectionState = "awaiting_return"
	SelectionDone    SelectionState = "complete"
)

// BookingDraft is the hand-off to checkout once every leg is chosen.
type BookingDraft struct {
	SubscriptionID string          `json:"subscriptionId"`
	TripType       TripType        `json:"tripType"`
	Passengers     PassengerCounts `json:"passengers"`
	Outbound       FlightOption    `json:"outbound"`
	Return         *FlightOption   `json:"return,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ItinerarySnapshot is a read-only view of the selection machine.
type ItinerarySnapshot struct {
	TripType  TripType       `json:"tripType"`
	State     SelectionState `json:"state"`
	ActiveLeg Leg            `json:"activeLeg"`
	Outbound  *FlightOption  `json:"outbound,omitempty"`
	Return    *FlightOption  `json:"return,omitempty"`
	Draft     *BookingDraft  `json:"draft,omitempty"`
}

// LookupOption finds an option by ID on the given leg of a result.
func (r *SearchResult) LookupOption(leg Leg, id string) *FlightOption {
	return findOption(r.Options(leg), id)
}
