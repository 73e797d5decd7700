package timezone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_At(t *testing.T) {
	resolver, err := NewResolver()
	require.NoError(t, err)

	tests := []struct {
		name     string
		lat, lon float64
		expected string
	}{
		{name: "tokyo", lat: 35.6895, lon: 139.6917, expected: "Asia/Tokyo"},
		{name: "london", lat: 51.5074, lon: -0.1278, expected: "Europe/London"},
		{name: "new york", lat: 40.7128, lon: -74.006, expected: "America/New_York"},
		{name: "sydney", lat: -33.8688, lon: 151.2093, expected: "Australia/Sydney"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zone, ok := resolver.At(tt.lat, tt.lon)

			assert.True(t, ok)
			assert.Equal(t, tt.expected, zone)
		})
	}
}
