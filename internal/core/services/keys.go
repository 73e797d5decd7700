package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
)

const (
	// reversePrecision is roughly 111 m at the equator.
	reversePrecision = 3

	// forecastPrecision matches the four decimals api.met.no accepts.
	forecastPrecision = 4
)

// PlaceKey normalizes a place name so that case and whitespace variants
// collide: lower-cased, trimmed, inner runs of whitespace collapsed.
func PlaceKey(place string) string {
	return strings.Join(strings.Fields(strings.ToLower(place)), " ")
}

// PointKey rounds both coordinates to three decimals and renders them with
// fixed precision.
func PointKey(lat, lon float64) string {
	return formatPair(lat, lon, reversePrecision)
}

// ForecastKey scopes a coordinate by provider so the same point routed to
// different providers never shares an entry.
func ForecastKey(provider string, coords domain.Coordinates) string {
	return provider + ":" + formatPair(coords.Latitude, coords.Longitude, forecastPrecision)
}

func formatPair(lat, lon float64, places int) string {
	return fmt.Sprintf("%.*f,%.*f", places, round(lat, places), places, round(lon, places))
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	r := math.Round(v*scale) / scale

	// -0.0004 rounds to -0, which would otherwise print as "-0.000"
	if r == 0 {
		return 0
	}

	return r
}
