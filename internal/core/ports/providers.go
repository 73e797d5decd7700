// Package ports defines the interfaces between the resolution core and the
// adapters around it: upstream providers, cache stores, metrics and the
// inbound service boundary.
package ports

import (
	"context"
	"encoding/json"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
)

// GeocodeResult is a forward geocoding match.
type GeocodeResult struct {
	Latitude  float64
	Longitude float64

	// Raw is the provider's match object, unmodified
	Raw json.RawMessage
}

// ReverseResult is a reverse geocoding match.
type ReverseResult struct {
	// Address is the provider's address breakdown. It may be absent or of an
	// unexpected shape; consumers navigate it with domain.Lookup.
	Address domain.Tree

	// Raw is the provider's full response, unmodified
	Raw json.RawMessage
}

// GeocodeProvider converts a place name to coordinates. It returns
// domain.ErrNoMatch when the provider answered with no results.
type GeocodeProvider interface {
	Search(ctx context.Context, place string) (*GeocodeResult, error)
}

// ReverseGeocodeProvider converts coordinates to a place description. It
// returns domain.ErrNoMatch when the provider answered with no result.
type ReverseGeocodeProvider interface {
	Reverse(ctx context.Context, coords domain.Coordinates) (*ReverseResult, error)
}

// WeatherProvider fetches a forecast document for a coordinate.
type WeatherProvider interface {
	// Name identifies the provider; it is part of forecast cache keys
	Name() string

	Fetch(ctx context.Context, coords domain.Coordinates) (domain.ForecastPayload, error)
}

// TimezoneResolver maps coordinates to an IANA timezone name. The second
// result is false when no zone covers the point.
type TimezoneResolver interface {
	At(lat, lon float64) (string, bool)
}
