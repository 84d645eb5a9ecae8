package backend

import (
	"encoding/json"
	"time"
)

// envelope is the backend's response wrapper. Successful calls fill Data,
// failed calls fill Error (or only Message on older endpoints).
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   *wireError      `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type wireAttachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireSubscription struct {
	ID                  string           `json:"id"`
	PackageName         string           `json:"package_name"`
	TripAllowance       int              `json:"trip_allowance"`
	DateChangeAllowance int              `json:"date_change_allowance"`
	MemberLimit         *int             `json:"member_limit"`
	AllowedRouteCount   *int             `json:"allowed_route_count"`
	ExpiresAt           *time.Time       `json:"expires_at"`
	Expired             bool             `json:"expired"`
	Members             []wireAttachment `json:"members"`
}

type wireAirport struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type wireRoute struct {
	ID          string      `json:"id"`
	Origin      wireAirport `json:"origin"`
	Destination wireAirport `json:"destination"`
}

type wirePoint struct {
	Airport string `json:"airport"`
	Time    string `json:"time"`
}

type wireFlight struct {
	ID              string      `json:"id"`
	AirlineCode     string      `json:"airline_code"`
	AirlineName     string      `json:"airline_name"`
	FlightNumber    string      `json:"flight_number"`
	Departure       wirePoint   `json:"departure"`
	Arrival         wirePoint   `json:"arrival"`
	DurationMinutes int         `json:"duration_minutes"`
	Stops           int         `json:"stops"`
	Segments        []wirePoint `json:"segments,omitempty"`
	FareClass       string      `json:"fare_class"`
}

type wireSearchResponse struct {
	Outbound []wireFlight `json:"outbound"`
	Return   []wireFlight `json:"return"`
}

type wirePassengers struct {
	Adult  int `json:"adult"`
	Child  int `json:"child"`
	Infant int `json:"infant"`
}

type wireDuration struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type wireSearchRequest struct {
	TripType       string         `json:"trip_type"`
	SubscriptionID string         `json:"subscription_id"`
	Origin         string         `json:"origin"`
	Destination    string         `json:"destination"`
	DepartureDate  string         `json:"departure_date"`
	ReturnDate     string         `json:"return_date,omitempty"`
	Passengers     wirePassengers `json:"passengers"`

	Airlines       []string      `json:"airlines,omitempty"`
	MaxTransit     *int          `json:"max_transit,omitempty"`
	TravelClass    string        `json:"travel_class,omitempty"`
	DepartureTimes []string      `json:"departure_times,omitempty"`
	ArrivalTimes   []string      `json:"arrival_times,omitempty"`
	Duration       *wireDuration `json:"duration,omitempty"`
}

type wirePassengerLink struct {
	PassengerIDs []string `json:"passenger_ids"`
}

type wireRouteLink struct {
	RouteIDs []string `json:"route_ids"`
}
