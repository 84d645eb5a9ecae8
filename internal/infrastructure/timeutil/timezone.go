package timeutil

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DateLayout is the calendar-date wire format.
const DateLayout = "2006-01-02"

// locationCache stores cached timezone locations for performance.
var locationCache sync.Map

// GetLocation returns a cached timezone location.
// It caches the result for subsequent calls with the same name.
func GetLocation(name string) (*time.Location, error) {
	if loc, ok := locationCache.Load(name); ok {
		return loc.(*time.Location), nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}

	locationCache.Store(name, loc)
	return loc, nil
}

// NormalizeDate converts a date picker value into YYYY-MM-DD.
// Plain dates pass through; RFC3339 timestamps are converted to the calendar
// day they fall on in the given timezone. Empty input yields an empty string.
func NormalizeDate(value, timezone string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	if d, err := time.Parse(DateLayout, value); err == nil {
		return d.Format(DateLayout), nil
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", fmt.Errorf("unrecognised date %q", value)
	}

	loc, err := GetLocation(timezone)
	if err != nil {
		return "", err
	}
	return ts.In(loc).Format(DateLayout), nil
}

// ClearLocationCache clears the cached timezone locations.
// This is primarily useful for testing.
func ClearLocationCache() {
	locationCache.Range(func(key, _ interface{}) bool {
		locationCache.Delete(key)
		return true
	})
}
