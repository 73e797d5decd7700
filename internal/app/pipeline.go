package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/adapters/primary/rest"
	"github.com/sean-rowe/weather-resolver/internal/config"
	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
	"github.com/sean-rowe/weather-resolver/internal/core/services"
	"github.com/sean-rowe/weather-resolver/internal/infrastructure/cache"
	"github.com/sean-rowe/weather-resolver/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/weather-resolver/internal/observability"
)

// GeocoderBreaker names the breaker shared by forward and reverse geocoding.
const GeocoderBreaker = "geocoder"

// Providers are the upstream dependencies of the pipeline.
type Providers struct {
	Geocoder  ports.GeocodeProvider
	Reverse   ports.ReverseGeocodeProvider
	UK        ports.WeatherProvider
	Worldwide ports.WeatherProvider

	// Timezones may be nil; responses then carry a null timezone
	Timezones ports.TimezoneResolver
}

// Pipeline is the assembled resolution core shared by every transport.
type Pipeline struct {
	Places     *services.GeocodeCache
	Points     *services.ReverseGeocodeCache
	Forecasts  *services.ForecastCache
	Service    ports.ResolutionService
	Dispatcher ports.Dispatcher
	Breakers   *circuitbreaker.Registry
}

// NewPipeline builds the caches, guards the providers with circuit
// breakers, seeds configured locations and wires the dispatcher.
//
// Parameters:
//   - ctx: Context for seeding
//   - cfg: Cache sizes, breaker thresholds and seed locations
//   - providers: Upstream providers
//   - telemetry: Metrics recorder, or nil
//   - clock: Clock for forecast expiry, or nil for the real clock
//   - logger: Zap logger
//
// Returns:
//   - *Pipeline: Ready pipeline
//   - error: Invalid cache sizing
func NewPipeline(
	ctx context.Context,
	cfg *config.Config,
	providers Providers,
	telemetry *observability.Telemetry,
	clock clockwork.Clock,
	logger *zap.Logger,
) (*Pipeline, error) {
	var (
		providerMetrics ProviderMetrics
		cacheMetrics    ports.CacheMetrics
	)

	if telemetry != nil {
		providerMetrics = telemetry
		cacheMetrics = telemetry
	}

	registry := circuitbreaker.NewRegistry(breakerDefaults(
		cfg.Breaker.MaxRequests,
		cfg.Breaker.Interval,
		cfg.Breaker.Timeout,
		func(name string, _, to gobreaker.State) {
			if telemetry != nil {
				telemetry.RecordBreakerTransition(name, to.String())
			}
		},
	), logger)

	geocoder := &GuardedGeocoder{
		forward: providers.Geocoder,
		reverse: providers.Reverse,
		breaker: registry.Get(GeocoderBreaker),
		metrics: providerMetrics,
	}

	guardWeather := func(provider ports.WeatherProvider) ports.WeatherProvider {
		return &GuardedWeather{
			provider: provider,
			breaker:  registry.Get(provider.Name()),
			metrics:  providerMetrics,
		}
	}

	placeStore := cache.NewMemoryStore[domain.LocationRecord]("geocode", logger)

	pointStore, err := cache.NewLRUStore[domain.LocationRecord]("reverse_geocode", cfg.Cache.ReverseGeocodeSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reverse geocode store: %w", err)
	}

	forecastStore, err := cache.NewTTLStore[domain.ForecastPayload]("forecast", cfg.Cache.ForecastSize, cfg.Cache.ForecastTTL, clock, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create forecast store: %w", err)
	}

	places := services.NewGeocodeCache(geocoder, placeStore, cacheMetrics, logger)
	points := services.NewReverseGeocodeCache(geocoder, pointStore, cacheMetrics, logger)
	router := services.NewForecastRouter(guardWeather(providers.UK), guardWeather(providers.Worldwide))
	forecasts := services.NewForecastCache(router, forecastStore, cacheMetrics, logger)

	for _, seed := range cfg.Locations {
		places.Seed(ctx, seed.Name, seedRecord(seed))
	}

	if len(cfg.Locations) > 0 {
		logger.Info("seeded geocode cache", zap.Int("locations", len(cfg.Locations)))
	}

	service := services.NewResolutionService(places, points, forecasts, providers.Timezones, logger)

	return &Pipeline{
		Places:     places,
		Points:     points,
		Forecasts:  forecasts,
		Service:    service,
		Dispatcher: services.NewDispatcher(service, logger),
		Breakers:   registry,
	}, nil
}

// CacheSizes reports the caches for /stats.
func (p *Pipeline) CacheSizes() map[string]rest.Sizer {
	return map[string]rest.Sizer{
		"geocode":         p.Places,
		"reverse_geocode": p.Points,
		"forecast":        p.Forecasts,
	}
}

// seedRecord turns a configured location into a cache record. Its raw
// payload is the seed itself.
func seedRecord(seed config.LocationSeed) domain.LocationRecord {
	raw, _ := json.Marshal(struct {
		Name        string  `json:"name"`
		Latitude    float64 `json:"lat"`
		Longitude   float64 `json:"lon"`
		DisplayName string  `json:"display_name,omitempty"`
	}{seed.Name, seed.Latitude, seed.Longitude, seed.DisplayName})

	return domain.LocationRecord{
		Latitude:    seed.Latitude,
		Longitude:   seed.Longitude,
		DisplayName: seed.DisplayName,
		Raw:         raw,
		InUK:        seed.InUK,
	}
}
