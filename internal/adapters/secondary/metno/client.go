// Package metno fetches worldwide forecasts from the Norwegian
// Meteorological Institute's Locationforecast 2.0 API.
package metno

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
const Name = "met.no"

// Client implements ports.WeatherProvider for api.met.no.
type Client struct {
	baseURL string
	http    *upstream.Client
}

// NewClient creates a met.no client. The terms of service require an
// identifying User-Agent.
//
// Parameters:
//   - baseURL: Locationforecast base URL (https://api.met.no/weatherapi/locationforecast/2.0)
//   - httpClient: HTTP client with timeout configuration
//   - userAgent: Identifying User-Agent, e.g. "weather-resolver/1.0 ops@example.com"
//   - logger: Zap logger
//
// Returns:
//   - *Client: Configured client
func NewClient(baseURL string, httpClient *http.Client, userAgent string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    upstream.NewClient(Name, httpClient, userAgent, logger),
	}
}

// Name returns the provider identity.
func (c *Client) Name() string {
	return Name
}

// Fetch returns the complete forecast document for coords. Coordinates are
// rounded to four decimals, the most the API accepts.
func (c *Client) Fetch(ctx context.Context, coords domain.Coordinates) (domain.ForecastPayload, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', 4, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', 4, 64))

	body, err := c.http.GetJSON(ctx, c.baseURL+"/complete.json", query, nil)
	if err != nil {
		return nil, err
	}

	return domain.ForecastPayload(body), nil
}
