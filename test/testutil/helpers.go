// Package testutil provides test helper functions for unit and integration tests.
package testutil

import (
	"encoding/json"
	"testing"
	"time"
)

// DateLayout is the calendar date format used by the API.
const DateLayout = "2006-01-02"

// FutureDate returns the date days from today in YYYY-MM-DD format.
func FutureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(DateLayout)
}

// MustParseTime parses a time string in RFC3339 format.
// It fails the test if parsing fails.
func MustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("Failed to parse time %s: %v", value, err)
	}
	return parsed
}

// MustParseDate parses a date string in YYYY-MM-DD format.
// It fails the test if parsing fails.
func MustParseDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		t.Fatalf("Failed to parse date %s: %v", value, err)
	}
	return parsed
}

// DecodeJSON unmarshals data into a T, failing the test on error.
func DecodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Failed to decode %s: %v", string(data), err)
	}
	return v
}

// Ptr returns a pointer to the given value.
// Useful for creating pointers to literals in tests.
func Ptr[T any](v T) *T {
	return &v
}
