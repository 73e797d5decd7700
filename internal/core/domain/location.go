// Package domain contains the core entities of the resolution service: resolved
// locations, forecast payloads, the transport-neutral request and response
// envelopes, and the error taxonomy shared by every transport.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Coordinates represent a geographic location using latitude and longitude.
type Coordinates struct {
	// Latitude specifies the north-south position (-90 to 90 degrees)
	Latitude float64

	// Longitude specifies the east-west position (-180 to 180 degrees)
	Longitude float64
}

// Validate checks if the coordinates are finite and within geographic bounds.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) {
		return fmt.Errorf("latitude must be finite, got %f", c.Latitude)
	}

	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return fmt.Errorf("longitude must be finite, got %f", c.Longitude)
	}

	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", c.Latitude)
	}

	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %f", c.Longitude)
	}

	return nil
}

// LocationRecord is the canonical shape of a resolved place. Records are built
// once by a normalization step on a cache miss and never mutated afterwards;
// they are shared by value between caches and responses.
type LocationRecord struct {
	// Latitude of the resolved place in decimal degrees
	Latitude float64 `json:"latitude"`

	// Longitude of the resolved place in decimal degrees
	Longitude float64 `json:"longitude"`

	// DisplayName is a human-readable label, empty when the provider gave none
	DisplayName string `json:"displayName,omitempty"`

	// Raw is the unmodified provider payload, passed through to clients
	Raw json.RawMessage `json:"raw"`

	// InUK is true when the place lies in the United Kingdom
	InUK bool `json:"inUK"`
}

// Coordinates returns the record's position.
func (r LocationRecord) Coordinates() Coordinates {
	return Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}

// ForecastPayload is the opaque document returned by whichever weather
// provider answered. The pipeline never interprets its fields.
type ForecastPayload = json.RawMessage

const unitedKingdom = "united kingdom"

// MentionsUK reports whether a display label names the United Kingdom.
func MentionsUK(label string) bool {
	return strings.Contains(strings.ToLower(label), unitedKingdom)
}

// AddressInUK reports whether any field of a provider address breakdown
// indicates the United Kingdom. Non-string fields are ignored.
func AddressInUK(address map[string]any) bool {
	for key, value := range address {
		s, ok := value.(string)
		if !ok {
			continue
		}

		if key == "country_code" && strings.EqualFold(s, "gb") {
			return true
		}

		if MentionsUK(s) {
			return true
		}
	}

	return false
}
