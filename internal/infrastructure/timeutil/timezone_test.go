package timeutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLocation_Caching(t *testing.T) {
	ClearLocationCache()

	loc1, err := GetLocation("Asia/Singapore")
	require.NoError(t, err)
	loc2, err := GetLocation("Asia/Singapore")
	require.NoError(t, err)

	assert.Same(t, loc1, loc2)
}

func TestGetLocation_Invalid(t *testing.T) {
	_, err := GetLocation("Invalid/Zone")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid/Zone")
}

func TestGetLocation_ConcurrentAccess(t *testing.T) {
	ClearLocationCache()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loc, err := GetLocation("Asia/Dubai")
			assert.NoError(t, err)
			assert.NotNil(t, loc)
		}()
	}
	wg.Wait()
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		timezone string
		want     string
		wantErr  bool
	}{
		{name: "empty", value: "", timezone: "UTC", want: ""},
		{name: "plain date passes through", value: "2025-08-01", timezone: "UTC", want: "2025-08-01"},
		{name: "whitespace trimmed", value: " 2025-08-01 ", timezone: "UTC", want: "2025-08-01"},
		{name: "timestamp in UTC", value: "2025-08-01T10:00:00Z", timezone: "UTC", want: "2025-08-01"},
		{name: "timestamp rolls to next local day", value: "2025-07-31T17:00:00Z", timezone: "Asia/Singapore", want: "2025-08-01"},
		{name: "offset timestamp", value: "2025-08-01T01:00:00+08:00", timezone: "UTC", want: "2025-07-31"},
		{name: "garbage", value: "01/08/2025", timezone: "UTC", wantErr: true},
		{name: "bad timezone", value: "2025-08-01T10:00:00Z", timezone: "Nowhere/Zone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.value, tt.timezone)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
