package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
)

// normalizeFlights converts backend flights to domain options. Flights that
// cannot be parsed are skipped and reported through skipped.
func normalizeFlights(flights []wireFlight, skipped func(id string, err error)) []domain.FlightOption {
	if flights == nil {
		return nil
	}

	result := make([]domain.FlightOption, 0, len(flights))
	for _, f := range flights {
		option, err := normalizeFlight(f)
		if err != nil {
			if skipped != nil {
				skipped(f.ID, err)
			}
			continue
		}
		result = append(result, option)
	}
	return result
}

func normalizeFlight(f wireFlight) (domain.FlightOption, error) {
	if f.ID == "" {
		return domain.FlightOption{}, fmt.Errorf("flight has no id")
	}

	departure, err := parseDateTime(f.Departure.Time)
	if err != nil {
		return domain.FlightOption{}, fmt.Errorf("failed to parse departure time: %w", err)
	}
	arrival, err := parseDateTime(f.Arrival.Time)
	if err != nil {
		return domain.FlightOption{}, fmt.Errorf("failed to parse arrival time: %w", err)
	}

	// Segments are authoritative when the backend sends them
	stops := f.Stops
	if len(f.Segments) > 1 {
		stops = len(f.Segments) - 1
	}

	duration := f.DurationMinutes
	if duration <= 0 {
		duration = int(arrival.Sub(departure).Minutes())
	}

	number := f.FlightNumber
	if number == "" {
		number = f.ID
	}

	return domain.FlightOption{
		ID:              f.ID,
		Carrier:         strings.ToUpper(f.AirlineCode),
		CarrierName:     f.AirlineName,
		FlightNumber:    number,
		Origin:          strings.ToUpper(f.Departure.Airport),
		Destination:     strings.ToUpper(f.Arrival.Airport),
		DepartureTime:   departure,
		ArrivalTime:     arrival,
		DurationMinutes: duration,
		Stops:           stops,
		FareClass:       normalizeClass(f.FareClass),
	}, nil
}

// parseDateTime accepts RFC3339 and the zone-less "2006-01-02T15:04:05".
func parseDateTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unable to parse datetime %q", value)
}

func normalizeClass(class string) string {
	switch strings.ToLower(strings.TrimSpace(class)) {
	case "economy", "eco", "y":
		return "economy"
	case "business", "biz", "j", "c":
		return "business"
	case "first", "f":
		return "first"
	default:
		return "economy"
	}
}

func normalizeSubscriptions(subs []wireSubscription, now time.Time) []domain.Subscription {
	result := make([]domain.Subscription, 0, len(subs))
	for _, s := range subs {
		members := make([]domain.Attachment, 0, len(s.Members))
		for _, m := range s.Members {
			members = append(members, domain.Attachment{ID: m.ID, Label: m.Name, Kind: domain.AttachmentPassenger})
		}

		result = append(result, domain.Subscription{
			ID:                  s.ID,
			PackageName:         s.PackageName,
			TripAllowance:       s.TripAllowance,
			DateChangeAllowance: s.DateChangeAllowance,
			MemberLimit:         s.MemberLimit,
			AllowedRouteCount:   s.AllowedRouteCount,
			Expired:             s.Expired || (s.ExpiresAt != nil && !s.ExpiresAt.After(now)),
			Members:             members,
		})
	}
	return result
}

func normalizeRoutes(routes []wireRoute) []domain.RoutePair {
	result := make([]domain.RoutePair, 0, len(routes))
	for _, r := range routes {
		result = append(result, domain.RoutePair{
			ID:          r.ID,
			Origin:      normalizeAirport(r.Origin),
			Destination: normalizeAirport(r.Destination),
		})
	}
	return result
}

func normalizeAirport(a wireAirport) domain.Airport {
	return domain.Airport{
		Code:    strings.ToUpper(strings.TrimSpace(a.Code)),
		Name:    a.Name,
		City:    a.City,
		Country: a.Country,
	}
}

// encodeSearchRequest flattens a request into the backend's query body.
// A nil overlay sends the base fields only.
func encodeSearchRequest(req domain.SearchRequest) wireSearchRequest {
	body := wireSearchRequest{
		TripType:       string(req.TripType),
		SubscriptionID: req.SubscriptionID,
		Origin:         req.Origin,
		Destination:    req.Destination,
		DepartureDate:  req.DepartureDate,
		ReturnDate:     req.ReturnDate,
		Passengers: wirePassengers{
			Adult:  req.Passengers.Adult,
			Child:  req.Passengers.Child,
			Infant: req.Passengers.Infant,
		},
	}

	f := req.Filters
	if f == nil {
		return body
	}

	body.Airlines = f.Airlines
	body.MaxTransit = f.MaxTransit
	body.TravelClass = f.TravelClass
	body.DepartureTimes = bucketStrings(f.DepartureBuckets)
	body.ArrivalTimes = bucketStrings(f.ArrivalBuckets)
	if f.DurationRange != nil {
		body.Duration = &wireDuration{Min: f.DurationRange.MinMinutes, Max: f.DurationRange.MaxMinutes}
	}
	return body
}

func bucketStrings(buckets []domain.TimeBucket) []string {
	if len(buckets) == 0 {
		return nil
	}
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = string(b)
	}
	return out
}
