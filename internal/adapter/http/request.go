// Package http provides the HTTP handler layer for the session API.
// It handles request parsing, validation, and response formatting.
package http

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
	"github.com/flight-search/flight-session-orchestrator/internal/usecase"
)

// SelectSubscriptionRequest is the body of PUT /session/subscription.
// An empty subscriptionId clears the selection.
type SelectSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

// RouteSelectionRequest is the body of PUT /session/route-selection.
type RouteSelectionRequest struct {
	// Origin is the airport code (or name when the route has no code); empty clears both ends
	Origin string `json:"origin"`

	// Destination must be one of the origin's permitted destinations; empty clears it
	Destination string `json:"destination"`
}

// PassengersDTO is the passenger mix of the search form.
type PassengersDTO struct {
	Adult  int `json:"adult"`
	Child  int `json:"child"`
	Infant int `json:"infant"`
}

// SearchFormRequest is the body of POST /session/search.
// Blank subscription, origin and destination fall back to the session selections.
type SearchFormRequest struct {
	SubscriptionID string `json:"subscriptionId,omitempty"`
	Origin         string `json:"origin,omitempty"`
	Destination    string `json:"destination,omitempty"`

	// DepartureDate is YYYY-MM-DD or an RFC 3339 timestamp
	DepartureDate string `json:"departureDate,omitempty"`

	// ReturnDate is present once the user touched the return-date control;
	// a present but empty value still means a one-way search
	ReturnDate *string `json:"returnDate,omitempty"`

	Passengers *PassengersDTO `json:"passengers,omitempty"`
}

// DurationHoursDTO is the duration slider expressed in hours.
// Example: {"min": 1.5, "max": 6} keeps flights between 90 and 360 minutes.
type DurationHoursDTO struct {
	Min float64 `json:"min" example:"1.5"`
	Max float64 `json:"max" example:"6"`
}

// FilterPatchRequest is the body of PATCH /session/filters.
// Omitted fields keep their value; null resets a field.
type FilterPatchRequest struct {
	domain.FilterPatch

	// DurationHours is an alternative to durationRange in hours
	DurationHours domain.Field[*DurationHoursDTO] `json:"durationHours"`
}

// ActiveLegRequest is the body of PUT /session/itinerary/active-leg.
type ActiveLegRequest struct {
	Leg string `json:"leg"`
}

// SelectOptionRequest is the body of POST /session/itinerary/select.
type SelectOptionRequest struct {
	Leg      string `json:"leg"`
	OptionID string `json:"optionId"`
}

// StageItemRequest is the body of POST /session/quota/:kind/:subscriptionId/pending.
// When id is omitted a new one is generated.
type StageItemRequest struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
}

// Validation regex patterns.
var (
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	airlinePattern = regexp.MustCompile(`^[A-Z0-9]{2,3}$`)
)

// ValidationError represents a field-level validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors holds multiple validation errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}
	return v.Errors[0].Message
}

// Add adds a validation error.
func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// ToMap converts validation errors to a map for API response.
func (v *ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string, len(v.Errors))
	for _, e := range v.Errors {
		result[e.Field] = e.Message
	}
	return result
}

// result returns errs as an error, or nil when it is empty.
func (v *ValidationErrors) result() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// Validate trims the subscription ID.
func (r *SelectSubscriptionRequest) Validate() error {
	r.SubscriptionID = strings.TrimSpace(r.SubscriptionID)
	return nil
}

// Validate checks the route selection.
func (r *RouteSelectionRequest) Validate() error {
	errs := &ValidationErrors{}

	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)

	if r.Origin == "" && r.Destination != "" {
		errs.Add("destination", "destination requires an origin")
	}
	if r.Origin != "" && strings.EqualFold(r.Origin, r.Destination) {
		errs.Add("destination", "origin and destination must be different")
	}

	return errs.result()
}

// Validate checks the search form fields that are present.
func (r *SearchFormRequest) Validate() error {
	errs := &ValidationErrors{}

	r.SubscriptionID = strings.TrimSpace(r.SubscriptionID)
	r.Origin = strings.TrimSpace(r.Origin)
	r.Destination = strings.TrimSpace(r.Destination)

	if r.Origin != "" && strings.EqualFold(r.Origin, r.Destination) {
		errs.Add("destination", "origin and destination must be different")
	}

	validateDate(errs, "departureDate", r.DepartureDate)
	if r.ReturnDate != nil {
		validateDate(errs, "returnDate", *r.ReturnDate)
	}

	r.validatePassengers(errs)

	return errs.result()
}

func (r *SearchFormRequest) validatePassengers(errs *ValidationErrors) {
	if r.Passengers == nil {
		return
	}

	p := r.Passengers
	if p.Adult < 1 {
		errs.Add("passengers.adult", "at least one adult is required")
	}
	if p.Child < 0 {
		errs.Add("passengers.child", "child must be a non-negative number")
	}
	if p.Infant < 0 {
		errs.Add("passengers.infant", "infant must be a non-negative number")
	}
	if p.Adult+p.Child+p.Infant > domain.MaxPassengers {
		errs.Add("passengers", fmt.Sprintf("passengers cannot exceed %d", domain.MaxPassengers))
	}
}

// Validate checks and normalises the fields present in the patch.
func (r *FilterPatchRequest) Validate() error {
	errs := &ValidationErrors{}

	if r.Airlines.Set {
		for i, airline := range r.Airlines.Value {
			normalized := strings.ToUpper(strings.TrimSpace(airline))
			if !airlinePattern.MatchString(normalized) {
				errs.Add(fmt.Sprintf("airlines[%d]", i), "airline code must be 2 or 3 characters")
			}
			r.Airlines.Value[i] = normalized
		}
	}

	if r.MaxTransit.Set && r.MaxTransit.Value != nil && *r.MaxTransit.Value < 0 {
		errs.Add("maxTransit", "maxTransit must be a non-negative number")
	}

	if r.TravelClass.Set {
		class := strings.ToLower(strings.TrimSpace(r.TravelClass.Value))
		if class != "" && !domain.IsValidTravelClass(class) {
			errs.Add("travelClass", "travelClass must be one of: economy, business, first")
		}
		r.TravelClass.Value = class
	}

	if r.DepartureBuckets.Set {
		validateBuckets(errs, "departureBuckets", r.DepartureBuckets.Value)
	}
	if r.ArrivalBuckets.Set {
		validateBuckets(errs, "arrivalBuckets", r.ArrivalBuckets.Value)
	}

	r.validateDuration(errs)

	if r.SelectedDate.Set {
		validateDate(errs, "selectedDate", r.SelectedDate.Value)
	}

	return errs.result()
}

func (r *FilterPatchRequest) validateDuration(errs *ValidationErrors) {
	if r.DurationRange.Set && r.DurationHours.Set {
		errs.Add("durationHours", "durationHours and durationRange cannot be combined")
		return
	}

	if r.DurationRange.Set && !r.DurationRange.Value.IsValid() {
		errs.Add("durationRange", "minMinutes must be between 0 and maxMinutes")
	}

	if r.DurationHours.Set && r.DurationHours.Value != nil {
		h := r.DurationHours.Value
		if _, err := usecase.DurationHoursToMinutes(h.Min, h.Max); err != nil {
			errs.Add("durationHours", "min must be between 0 and max")
		}
	}
}

// Validate checks the leg name.
func (r *ActiveLegRequest) Validate() error {
	errs := &ValidationErrors{}
	r.Leg = strings.ToLower(strings.TrimSpace(r.Leg))
	validateLeg(errs, r.Leg)
	return errs.result()
}

// Validate checks the leg and option ID.
func (r *SelectOptionRequest) Validate() error {
	errs := &ValidationErrors{}

	r.Leg = strings.ToLower(strings.TrimSpace(r.Leg))
	validateLeg(errs, r.Leg)

	r.OptionID = strings.TrimSpace(r.OptionID)
	if r.OptionID == "" {
		errs.Add("optionId", "optionId is required")
	}

	return errs.result()
}

// Validate checks the staged item.
func (r *StageItemRequest) Validate() error {
	errs := &ValidationErrors{}

	r.ID = strings.TrimSpace(r.ID)
	r.Label = strings.TrimSpace(r.Label)
	if r.ID == "" && r.Label == "" {
		errs.Add("label", "label is required when id is omitted")
	}

	return errs.result()
}

func validateLeg(errs *ValidationErrors, leg string) {
	if leg == "" {
		errs.Add("leg", "leg is required")
		return
	}
	if !domain.Leg(leg).IsValid() {
		errs.Add("leg", "leg must be one of: outbound, return")
	}
}

func validateBuckets(errs *ValidationErrors, field string, buckets []domain.TimeBucket) {
	for i, b := range buckets {
		if !b.IsValid() {
			errs.Add(fmt.Sprintf("%s[%d]", field, i), "bucket must be one of: early_morning, morning, afternoon, night")
		}
	}
}

// validateDate accepts an empty value, a YYYY-MM-DD date or an RFC 3339 timestamp.
func validateDate(errs *ValidationErrors, field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	if datePattern.MatchString(value) {
		if _, err := time.Parse(domain.DateLayout, value); err != nil {
			errs.Add(field, field+" is not a valid date")
		}
		return
	}
	if _, err := time.Parse(time.RFC3339, value); err != nil {
		errs.Add(field, field+" must be in YYYY-MM-DD format")
	}
}
