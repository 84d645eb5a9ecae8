package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validRequest() SearchRequest {
	return SearchRequest{
		TripType:       TripOneWay,
		SubscriptionID: "sub-1",
		Origin:         "SIN",
		Destination:    "NRT",
		DepartureDate:  "2025-12-15",
		Passengers:     PassengerCounts{Adult: 1},
	}
}

func TestSearchRequest_Validate(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(r *SearchRequest)
		wantErr      bool
		wantContains string
	}{
		{
			name:   "valid one-way",
			modify: func(r *SearchRequest) {},
		},
		{
			name: "valid round trip",
			modify: func(r *SearchRequest) {
				r.TripType = TripRoundTrip
				r.ReturnDate = "2025-12-20"
			},
		},
		{
			name: "same-day return",
			modify: func(r *SearchRequest) {
				r.TripType = TripRoundTrip
				r.ReturnDate = r.DepartureDate
			},
		},
		{
			name:         "missing subscription",
			modify:       func(r *SearchRequest) { r.SubscriptionID = "" },
			wantErr:      true,
			wantContains: "subscriptionId is required",
		},
		{
			name:         "missing origin",
			modify:       func(r *SearchRequest) { r.Origin = "" },
			wantErr:      true,
			wantContains: "origin is required",
		},
		{
			name:         "same origin and destination",
			modify:       func(r *SearchRequest) { r.Destination = "SIN" },
			wantErr:      true,
			wantContains: "must be different",
		},
		{
			name:         "bad date format",
			modify:       func(r *SearchRequest) { r.DepartureDate = "12-15-2025" },
			wantErr:      true,
			wantContains: "YYYY-MM-DD",
		},
		{
			name:         "impossible date",
			modify:       func(r *SearchRequest) { r.DepartureDate = "2025-02-30" },
			wantErr:      true,
			wantContains: "not a valid date",
		},
		{
			name: "one-way with return date",
			modify: func(r *SearchRequest) {
				r.ReturnDate = "2025-12-20"
			},
			wantErr:      true,
			wantContains: "one-way",
		},
		{
			name:         "round trip without return date",
			modify:       func(r *SearchRequest) { r.TripType = TripRoundTrip },
			wantErr:      true,
			wantContains: "requires a returnDate",
		},
		{
			name: "return before departure",
			modify: func(r *SearchRequest) {
				r.TripType = TripRoundTrip
				r.ReturnDate = "2025-12-14"
			},
			wantErr:      true,
			wantContains: "before departureDate",
		},
		{
			name:         "unknown trip type",
			modify:       func(r *SearchRequest) { r.TripType = "multi_city" },
			wantErr:      true,
			wantContains: "unknown trip type",
		},
		{
			name:         "no adult",
			modify:       func(r *SearchRequest) { r.Passengers = PassengerCounts{Child: 1} },
			wantErr:      true,
			wantContains: "at least one adult",
		},
		{
			name:         "too many passengers",
			modify:       func(r *SearchRequest) { r.Passengers = PassengerCounts{Adult: 5, Child: 3, Infant: 2} },
			wantErr:      true,
			wantContains: "cannot exceed 9",
		},
		{
			name:         "negative infants",
			modify:       func(r *SearchRequest) { r.Passengers = PassengerCounts{Adult: 1, Infant: -1} },
			wantErr:      true,
			wantContains: "negative",
		},
		{
			name: "inverted duration filter",
			modify: func(r *SearchRequest) {
				r.Filters = &FilterOverlay{DurationRange: &DurationRange{MinMinutes: 300, MaxMinutes: 60}}
			},
			wantErr:      true,
			wantContains: "duration range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.modify(&req)

			err := req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				assert.Contains(t, err.Error(), tt.wantContains)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSearchRequest_WithoutFilters(t *testing.T) {
	req := validRequest()
	req.Filters = &FilterOverlay{Airlines: []string{"SQ"}}

	base := req.WithoutFilters()

	assert.Nil(t, base.Filters)
	assert.NotNil(t, req.Filters, "original keeps its overlay")
	assert.Equal(t, req.Origin, base.Origin)
	assert.False(t, base.IsRoundTrip())
}

func TestNewSearchResult(t *testing.T) {
	at := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	req := validRequest()

	t.Run("absent lists become empty", func(t *testing.T) {
		r := NewSearchResult(req, SearchLegs{Outbound: []FlightOption{{ID: "a"}}}, at)

		assert.Len(t, r.Outbound, 1)
		assert.NotNil(t, r.Return)
		assert.Empty(t, r.Return)
		assert.False(t, r.Empty)
		assert.Equal(t, at, r.SearchedAt)
	})

	t.Run("no flights is empty", func(t *testing.T) {
		r := EmptySearchResult(req, at)

		assert.True(t, r.Empty)
		assert.NotNil(t, r.Outbound)
		assert.Equal(t, req, r.Request)
	})

	t.Run("options by leg", func(t *testing.T) {
		r := NewSearchResult(req, SearchLegs{
			Outbound: []FlightOption{{ID: "a"}},
			Return:   []FlightOption{{ID: "b"}},
		}, at)

		assert.Equal(t, "a", r.Options(LegOutbound)[0].ID)
		assert.Equal(t, "b", r.Options(LegReturn)[0].ID)
	})
}

func TestPassengerCounts_Total(t *testing.T) {
	assert.Equal(t, 4, PassengerCounts{Adult: 2, Child: 1, Infant: 1}.Total())
}

func TestSubscription_Allowance(t *testing.T) {
	sub := Subscription{MemberLimit: intPtr(4)}

	assert.Equal(t, 4, *sub.Allowance(AttachmentPassenger))
	assert.Nil(t, sub.Allowance(AttachmentRoute), "nil means unlimited")
	assert.Nil(t, sub.Allowance("pet"))
}

func TestAirport_KeyAndMatches(t *testing.T) {
	assert.Equal(t, "SIN", Airport{Code: " sin "}.Key())

	coded := Airport{Code: "sin", Name: "Changi"}
	assert.Equal(t, "SIN", coded.Key())
	assert.True(t, coded.Matches("SIN"))
	assert.True(t, coded.Matches("sin"))
	assert.False(t, coded.Matches("Changi"), "coded airports match by code only")

	named := Airport{Name: "Komodo"}
	assert.Equal(t, "Komodo", named.Key())
	assert.True(t, named.Matches("Komodo"))
	assert.False(t, named.Matches(""))

	route := RoutePair{ID: "r-1", Origin: coded, Destination: Airport{Code: "NRT"}}
	assert.Equal(t, Attachment{ID: "r-1", Label: "SIN-NRT", Kind: AttachmentRoute}, route.AsAttachment())
}
