package domain

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Bounds of the duration slider, in minutes.
const (
	MinDurationMinutes = 0
	MaxDurationMinutes = 48 * 60
)

// TimeBucket is a time-of-day window used to filter departures and arrivals.
type TimeBucket string

// Available time buckets.
const (
	BucketEarlyMorning TimeBucket = "early_morning" // 00:00-06:00
	BucketMorning      TimeBucket = "morning"       // 06:00-12:00
	BucketAfternoon    TimeBucket = "afternoon"     // 12:00-18:00
	BucketNight        TimeBucket = "night"         // 18:00-24:00
)

// IsValid checks if the bucket is a known value.
func (b TimeBucket) IsValid() bool {
	switch b {
	case BucketEarlyMorning, BucketMorning, BucketAfternoon, BucketNight:
		return true
	default:
		return false
	}
}

// Valid travel classes.
var validClasses = map[string]bool{
	"economy":  true,
	"business": true,
	"first":    true,
}

// IsValidTravelClass reports whether the class is one the backend understands.
func IsValidTravelClass(class string) bool {
	return validClasses[class]
}

// DurationRange is a closed interval of total travel time in minutes.
type DurationRange struct {
	MinMinutes int `json:"minMinutes"`
	MaxMinutes int `json:"maxMinutes"`
}

// FullDurationRange is the unfiltered slider position.
func FullDurationRange() DurationRange {
	return DurationRange{MinMinutes: MinDurationMinutes, MaxMinutes: MaxDurationMinutes}
}

// IsValid checks 0 <= min <= max. A nil range is valid.
func (dr *DurationRange) IsValid() bool {
	if dr == nil {
		return true
	}
	if dr.MinMinutes < 0 || dr.MaxMinutes < 0 {
		return false
	}
	return dr.MinMinutes <= dr.MaxMinutes
}

// IsFull reports whether the range covers the whole slider.
func (dr *DurationRange) IsFull() bool {
	if dr == nil {
		return true
	}
	return dr.MinMinutes <= MinDurationMinutes && dr.MaxMinutes >= MaxDurationMinutes
}

// FilterOverlay is the set of filter parameters attached to a search request.
type FilterOverlay struct {
	Airlines         []string       `json:"airlines,omitempty"`
	MaxTransit       *int           `json:"maxTransit,omitempty"`
	TravelClass      string         `json:"travelClass,omitempty"`
	DepartureBuckets []TimeBucket   `json:"departureBuckets,omitempty"`
	ArrivalBuckets   []TimeBucket   `json:"arrivalBuckets,omitempty"`
	DurationRange    *DurationRange `json:"durationRange,omitempty"`
}

// IsEmpty reports whether the overlay carries no parameter at all.
func (o *FilterOverlay) IsEmpty() bool {
	if o == nil {
		return true
	}
	return len(o.Airlines) == 0 &&
		o.MaxTransit == nil &&
		o.TravelClass == "" &&
		len(o.DepartureBuckets) == 0 &&
		len(o.ArrivalBuckets) == 0 &&
		o.DurationRange == nil
}

// Validate checks the overlay values.
func (o *FilterOverlay) Validate() error {
	if o == nil {
		return nil
	}
	if o.MaxTransit != nil && *o.MaxTransit < 0 {
		return fmt.Errorf("%w: maxTransit cannot be negative", ErrInvalidRequest)
	}
	if o.TravelClass != "" && !IsValidTravelClass(o.TravelClass) {
		return fmt.Errorf("%w: travelClass must be one of: economy, business, first; got %q", ErrInvalidRequest, o.TravelClass)
	}
	for _, b := range append(slices.Clone(o.DepartureBuckets), o.ArrivalBuckets...) {
		if !b.IsValid() {
			return fmt.Errorf("%w: unknown time bucket %q", ErrInvalidRequest, b)
		}
	}
	if !o.DurationRange.IsValid() {
		return fmt.Errorf("%w: duration range must satisfy 0 <= min <= max", ErrInvalidRequest)
	}
	return nil
}

// FilterState is the mutable filter panel of a search session.
type FilterState struct {
	Airlines         []string      `json:"airlines"`
	MaxTransit       *int          `json:"maxTransit,omitempty"`
	TravelClass      string        `json:"travelClass,omitempty"`
	DepartureBuckets []TimeBucket  `json:"departureBuckets"`
	ArrivalBuckets   []TimeBucket  `json:"arrivalBuckets"`
	DurationRange    DurationRange `json:"durationRange"`

	// SelectedDate is the date-strip choice; it overrides the departure date on re-search
	SelectedDate string `json:"selectedDate,omitempty"`
}

// DefaultFilterState returns the untouched filter panel.
func DefaultFilterState() FilterState {
	return FilterState{
		Airlines:         []string{},
		DepartureBuckets: []TimeBucket{},
		ArrivalBuckets:   []TimeBucket{},
		DurationRange:    FullDurationRange(),
	}
}

// Overlay converts the state into request parameters. It returns nil when no filter is active.
func (s FilterState) Overlay() *FilterOverlay {
	o := &FilterOverlay{
		Airlines:         slices.Clone(s.Airlines),
		TravelClass:      s.TravelClass,
		DepartureBuckets: slices.Clone(s.DepartureBuckets),
		ArrivalBuckets:   slices.Clone(s.ArrivalBuckets),
	}
	if s.MaxTransit != nil {
		v := *s.MaxTransit
		o.MaxTransit = &v
	}
	if dr := s.DurationRange; !dr.IsFull() {
		o.DurationRange = &dr
	}
	if o.IsEmpty() {
		return nil
	}
	return o
}

// Field is a patch slot that distinguishes "omitted" (Set == false) from "set to a value",
// including an explicit zero or null value.
type Field[T any] struct {
	Set   bool
	Value T
}

// Set returns a populated patch slot.
func Set[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// UnmarshalJSON marks the slot as present, even for a JSON null.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON encodes the value.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// FilterPatch is a partial update of FilterState. Omitted fields keep their current value.
type FilterPatch struct {
	Airlines         Field[[]string]       `json:"airlines"`
	MaxTransit       Field[*int]           `json:"maxTransit"`
	TravelClass      Field[string]         `json:"travelClass"`
	DepartureBuckets Field[[]TimeBucket]   `json:"departureBuckets"`
	ArrivalBuckets   Field[[]TimeBucket]   `json:"arrivalBuckets"`
	DurationRange    Field[*DurationRange] `json:"durationRange"`
	SelectedDate     Field[string]         `json:"selectedDate"`
}

// IsEmpty reports whether the patch changes nothing.
func (p FilterPatch) IsEmpty() bool {
	return !p.Airlines.Set &&
		!p.MaxTransit.Set &&
		!p.TravelClass.Set &&
		!p.DepartureBuckets.Set &&
		!p.ArrivalBuckets.Set &&
		!p.DurationRange.Set &&
		!p.SelectedDate.Set
}

// IsContinuous reports whether the patch touches a continuous-valued control.
// Only the duration slider is continuous.
func (p FilterPatch) IsContinuous() bool {
	return p.DurationRange.Set
}

// Merge applies the patch field by field and returns the new state.
// A null duration range resets the slider to its full span.
func (s FilterState) Merge(p FilterPatch) FilterState {
	next := s
	next.Airlines = slices.Clone(s.Airlines)
	next.DepartureBuckets = slices.Clone(s.DepartureBuckets)
	next.ArrivalBuckets = slices.Clone(s.ArrivalBuckets)

	if p.Airlines.Set {
		next.Airlines = nonNil(slices.Clone(p.Airlines.Value))
	}
	if p.MaxTransit.Set {
		if p.MaxTransit.Value == nil {
			next.MaxTransit = nil
		} else {
			v := *p.MaxTransit.Value
			next.MaxTransit = &v
		}
	}
	if p.TravelClass.Set {
		next.TravelClass = p.TravelClass.Value
	}
	if p.DepartureBuckets.Set {
		next.DepartureBuckets = nonNil(slices.Clone(p.DepartureBuckets.Value))
	}
	if p.ArrivalBuckets.Set {
		next.ArrivalBuckets = nonNil(slices.Clone(p.ArrivalBuckets.Value))
	}
	if p.DurationRange.Set {
		if p.DurationRange.Value == nil {
			next.DurationRange = FullDurationRange()
		} else {
			next.DurationRange = *p.DurationRange.Value
		}
	}
	if p.SelectedDate.Set {
		next.SelectedDate = p.SelectedDate.Value
	}
	return next
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
