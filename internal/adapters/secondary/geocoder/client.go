// Package geocoder implements forward and reverse geocoding against a
// Nominatim-compatible API such as geocode.maps.co.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/adapters/secondary/upstream"
	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

// Client implements ports.GeocodeProvider and ports.ReverseGeocodeProvider.
type Client struct {
	baseURL string
	apiKey  string
	http    *upstream.Client
	logger  *zap.Logger
}

// NewClient creates a geocoding client.
//
// Parameters:
//   - baseURL: API base URL (typically https://geocode.maps.co)
//   - apiKey: API key sent as the api_key query parameter, may be empty
//   - httpClient: HTTP client with timeout configuration
//   - userAgent: User-Agent header value
//   - logger: Zap logger for API interaction logging
//
// Returns:
//   - *Client: Configured geocoding client
func NewClient(baseURL, apiKey string, httpClient *http.Client, userAgent string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    upstream.NewClient("geocoder", httpClient, userAgent, logger),
		logger:  logger,
	}
}

// match holds the fields read from one search result. Nominatim encodes
// coordinates as strings; json.Number accepts both strings and numbers.
type match struct {
	Lat json.Number `json:"lat"`
	Lon json.Number `json:"lon"`
}

// Search returns the best match for place.
//
// Parameters:
//   - ctx: Context for cancellation
//   - place: Free-form place name, sent unmodified
//
// Returns:
//   - *ports.GeocodeResult: Coordinates and the raw first match
//   - error: domain.ErrNoMatch for an empty result list, otherwise transport or decode errors
func (c *Client) Search(ctx context.Context, place string) (*ports.GeocodeResult, error) {
	query := c.query()
	query.Set("q", place)

	body, err := c.http.GetJSON(ctx, c.baseURL+"/search", query, nil)
	if err != nil {
		return nil, err
	}

	var results []json.RawMessage

	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decoding search results: %w", domain.ErrMalformedPayload)
	}

	if len(results) == 0 {
		return nil, domain.ErrNoMatch
	}

	first := results[0]

	var m match

	if err := json.Unmarshal(first, &m); err != nil {
		return nil, fmt.Errorf("decoding search match: %w", domain.ErrMalformedPayload)
	}

	lat, err := m.Lat.Float64()
	if err != nil {
		return nil, fmt.Errorf("parsing latitude %q: %w", m.Lat, domain.ErrMalformedPayload)
	}

	lon, err := m.Lon.Float64()
	if err != nil {
		return nil, fmt.Errorf("parsing longitude %q: %w", m.Lon, domain.ErrMalformedPayload)
	}

	c.logger.Debug("geocoded place",
		zap.String("place", place),
		zap.Int("matches", len(results)),
		zap.Float64("latitude", lat),
		zap.Float64("longitude", lon))

	return &ports.GeocodeResult{Latitude: lat, Longitude: lon, Raw: first}, nil
}

// Reverse returns the place at coords.
//
// Parameters:
//   - ctx: Context for cancellation
//   - coords: Point to describe
//
// Returns:
//   - *ports.ReverseResult: Address breakdown (may be absent) and the raw response
//   - error: domain.ErrNoMatch when the provider reports no place, otherwise transport errors
func (c *Client) Reverse(ctx context.Context, coords domain.Coordinates) (*ports.ReverseResult, error) {
	query := c.query()
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))

	body, err := c.http.GetJSON(ctx, c.baseURL+"/reverse", query, nil)
	if err != nil {
		return nil, err
	}

	tree, err := domain.DecodeTree(body)
	if err != nil {
		return nil, fmt.Errorf("decoding reverse result: %w", domain.ErrMalformedPayload)
	}

	if _, ok := tree.(map[string]any); !ok {
		return nil, fmt.Errorf("reverse result is not an object: %w", domain.ErrMalformedPayload)
	}

	// Nominatim answers 200 with {"error": "Unable to geocode"} for open sea
	if message, failed := domain.LookupString(tree, "error"); failed {
		return nil, fmt.Errorf("%s: %w", message, domain.ErrNoMatch)
	}

	address, _ := domain.Lookup(tree, "address")

	return &ports.ReverseResult{Address: address, Raw: json.RawMessage(body)}, nil
}

func (c *Client) query() url.Values {
	query := url.Values{}

	if c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}

	return query
}
