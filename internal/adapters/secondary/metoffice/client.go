// Package metoffice fetches UK forecasts from the Met Office Weather
// DataHub site-specific API.
package metoffice

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/adapters/secondary/upstream"
	"github.com/sean-rowe/weather-resolver/internal/core/domain"
)

// Name identifies this provider in forecast cache keys and metrics.
const Name = "metoffice"

// Client implements ports.WeatherProvider for the Met Office DataHub.
type Client struct {
	baseURL string
	apiKey  string
	http    *upstream.Client
}

// NewClient creates a Met Office client.
//
// Parameters:
//   - baseURL: Site-specific base URL (https://data.hub.api.metoffice.gov.uk/sitespecific/v0)
//   - apiKey: DataHub API key, sent in the apikey header
//   - httpClient: HTTP client with timeout configuration
//   - userAgent: User-Agent header value
//   - logger: Zap logger
//
// Returns:
//   - *Client: Configured client
func NewClient(baseURL, apiKey string, httpClient *http.Client, userAgent string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    upstream.NewClient(Name, httpClient, userAgent, logger),
	}
}

// Name returns the provider identity.
func (c *Client) Name() string {
	return Name
}

// Fetch returns the hourly spot forecast for coords.
func (c *Client) Fetch(ctx context.Context, coords domain.Coordinates) (domain.ForecastPayload, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', 4, 64))
	query.Set("includeLocationName", "true")

	header := http.Header{}
	header.Set("apikey", c.apiKey)

	body, err := c.http.GetJSON(ctx, c.baseURL+"/point/hourly", query, header)
	if err != nil {
		return nil, err
	}

	return domain.ForecastPayload(body), nil
}
