// Package domain contains the core entities and rules of the flight search session.
// These types are shared by the orchestration use cases, the backend client and the HTTP layer.
package domain

import (
	"strconv"
	"time"
)

// FlightOption is a single bookable flight returned by the backend for one leg.
type FlightOption struct {
	// ID identifies the option within a search result
	ID string `json:"id"`

	// Carrier is the IATA airline code (e.g., "SQ")
	Carrier string `json:"carrier"`

	// CarrierName is the display name of the airline
	CarrierName string `json:"carrierName,omitempty"`

	// FlightNumber is the marketing flight number (e.g., "SQ-494")
	FlightNumber string `json:"flightNumber"`

	// Origin and Destination are airport codes for this leg
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	// DepartureTime is the scheduled departure
	DepartureTime time.Time `json:"departureTime"`

	// ArrivalTime is the scheduled arrival
	ArrivalTime time.Time `json:"arrivalTime"`

	// DurationMinutes is the total travel time including connections
	DurationMinutes int `json:"durationMinutes"`

	// Stops is the number of transits (0 = direct)
	Stops int `json:"stops"`

	// FareClass is the cabin/fare class (economy, business, first)
	FareClass string `json:"fareClass"`
}

// FormatDuration renders minutes as "Xh Ym", "Xh" or "Ym".
func FormatDuration(totalMinutes int) string {
	hours := totalMinutes / 60
	mins := totalMinutes % 60

	switch {
	case hours > 0 && mins > 0:
		return strconv.Itoa(hours) + "h " + strconv.Itoa(mins) + "m"
	case hours > 0:
		return strconv.Itoa(hours) + "h"
	default:
		return strconv.Itoa(mins) + "m"
	}
}

// findOption returns the option with the given ID, or nil.
func findOption(options []FlightOption, id string) *FlightOption {
	for i := range options {
		if options[i].ID == id {
			opt := options[i]
			return &opt
		}
	}
	return nil
}
