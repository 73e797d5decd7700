package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

// ForecastRouter selects the weather provider for a location. The choice is
// a pure function of the record's UK flag.
type ForecastRouter struct {
	uk        ports.WeatherProvider
	worldwide ports.WeatherProvider
}

// NewForecastRouter creates a router over the UK-specific and worldwide
// providers.
func NewForecastRouter(uk, worldwide ports.WeatherProvider) *ForecastRouter {
	return &ForecastRouter{uk: uk, worldwide: worldwide}
}

// Route returns the provider that answers for location.
func (r *ForecastRouter) Route(location domain.LocationRecord) ports.WeatherProvider {
	if location.InUK {
		return r.uk
	}

	return r.worldwide
}

// ForecastCache holds forecast documents keyed by provider and coordinate.
// Capacity and expiry are enforced by the store. Failures are never stored,
// so the next request retries the provider.
type ForecastCache struct {
	router  *ForecastRouter
	store   ports.Store[domain.ForecastPayload]
	metrics ports.CacheMetrics
	logger  *zap.Logger
}

// NewForecastCache creates a ForecastCache.
//
// Parameters:
//   - router: Provider selection policy
//   - store: Bounded, expiring store for forecast documents
//   - metrics: Hit/miss recorder, may be nil
//   - logger: Zap logger for cache operations
//
// Returns:
//   - *ForecastCache: Ready-to-use cache
func NewForecastCache(router *ForecastRouter, store ports.Store[domain.ForecastPayload], metrics ports.CacheMetrics, logger *zap.Logger) *ForecastCache {
	return &ForecastCache{
		router:  router,
		store:   store,
		metrics: metricsOrNoop(metrics),
		logger:  logger,
	}
}

// Len returns the number of forecast entries held, including any expired
// entries not yet evicted.
func (c *ForecastCache) Len() int {
	return c.store.Len()
}

// Forecast returns the forecast for location from exactly one provider.
//
// Parameters:
//   - ctx: Context for the provider call
//   - location: Resolved location; its UK flag selects the provider
//
// Returns:
//   - domain.ForecastPayload: Cached or freshly fetched document
//   - error: *domain.ResolutionError of kind FORECAST_ERROR when unavailable
func (c *ForecastCache) Forecast(ctx context.Context, location domain.LocationRecord) (domain.ForecastPayload, error) {
	provider := c.router.Route(location)
	key := ForecastKey(provider.Name(), location.Coordinates())

	if payload, ok := c.store.Get(ctx, key); ok {
		c.metrics.RecordCacheHit(ctx, forecastCacheName)
		c.logger.Debug("forecast cache hit", zap.String("key", key))

		return payload, nil
	}

	c.metrics.RecordCacheMiss(ctx, forecastCacheName)
	c.logger.Debug("forecast cache miss", zap.String("key", key), zap.String("provider", provider.Name()))

	payload, err := provider.Fetch(ctx, location.Coordinates())
	if err == nil && !json.Valid(payload) {
		err = domain.ErrMalformedPayload
	}

	if err != nil {
		c.logger.Warn("forecast unavailable",
			zap.String("provider", provider.Name()),
			zap.String("key", key),
			zap.Error(err))

		return nil, domain.NewForecastError(fmt.Sprintf("forecast from %s unavailable", provider.Name()), err)
	}

	c.store.Set(ctx, key, payload)

	return payload, nil
}
