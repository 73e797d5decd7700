// Package upstream is the shared HTTP plumbing for the third-party
// geocoding and weather providers: User-Agent, timeouts, status checks and
// JSON validation.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// StatusError reports a non-success HTTP status from a provider.
type StatusError struct {
	Service    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
}

// Client performs GET requests against a provider and returns the raw JSON
// body.
type Client struct {
	// service names the provider in errors and logs
	service string

	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

// NewClient creates a provider HTTP client.
//
// Parameters:
//   - service: Provider name used in errors and logs
//   - httpClient: HTTP client with transport-level timeouts
//   - userAgent: User-Agent sent on every request; some providers reject requests without one
//   - logger: Zap logger for request logging
//
// Returns:
//   - *Client: Configured client
func NewClient(service string, httpClient *http.Client, userAgent string, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		service:    service,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// GetJSON fetches endpoint with query and header and returns the body once
// it is known to be valid JSON.
//
// Parameters:
//   - ctx: Context for cancellation; a 10s timeout is added when it has no deadline
//   - endpoint: Absolute URL without query string
//   - query: Query parameters
//   - header: Extra request headers, may be nil
//
// Returns:
//   - []byte: Response body
//   - error: Transport error, *StatusError, or domain.ErrMalformedPayload
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, header http.Header) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", c.service, err)
	}

	for name, values := range header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}

	req.Header.Set("Accept", "application/json")

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", c.service, err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("failed to close response body", zap.String("service", c.service), zap.Error(err))
		}
	}(resp.Body)

	c.logger.Debug("upstream response",
		zap.String("service", c.service),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Service: c.service, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", c.service, err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%s: %w", c.service, domain.ErrMalformedPayload)
	}

	return body, nil
}
