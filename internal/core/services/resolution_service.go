package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

type resolutionService struct {
	places    *GeocodeCache
	points    *ReverseGeocodeCache
	forecasts *ForecastCache
	timezones ports.TimezoneResolver
	logger    *zap.Logger
}

// NewResolutionService wires the three caches and the timezone resolver
// into the two resolution entry points. The service itself holds no state.
//
// Parameters:
//   - places: Forward geocoding cache
//   - points: Reverse geocoding cache
//   - forecasts: Forecast cache with its router
//   - timezones: Coordinate to IANA zone resolver, may be nil
//   - logger: Zap logger
//
// Returns:
//   - ports.ResolutionService: The resolution pipeline
func NewResolutionService(places *GeocodeCache, points *ReverseGeocodeCache, forecasts *ForecastCache, timezones ports.TimezoneResolver, logger *zap.Logger) ports.ResolutionService {
	return &resolutionService{
		places:    places,
		points:    points,
		forecasts: forecasts,
		timezones: timezones,
		logger:    logger,
	}
}

// ByPlace resolves a place name.
func (s *resolutionService) ByPlace(ctx context.Context, name string) domain.Envelope {
	location, err := s.places.Resolve(ctx, name)
	if err != nil {
		s.logger.Info("place resolution failed", zap.String("place", name), zap.Error(err))
		return domain.EnvelopeFromError(err)
	}

	return s.assemble(ctx, location)
}

// ByPoint resolves a coordinate pair.
func (s *resolutionService) ByPoint(ctx context.Context, lat, lon float64) domain.Envelope {
	location, err := s.points.Resolve(ctx, lat, lon)
	if err != nil {
		s.logger.Info("point resolution failed",
			zap.Float64("latitude", lat),
			zap.Float64("longitude", lon),
			zap.Error(err))

		return domain.EnvelopeFromError(err)
	}

	return s.assemble(ctx, location)
}

// assemble adds timezone and forecast. A forecast failure leaves the
// forecast null rather than failing the response.
func (s *resolutionService) assemble(ctx context.Context, location domain.LocationRecord) domain.Envelope {
	var timezone string

	if s.timezones != nil {
		timezone, _ = s.timezones.At(location.Latitude, location.Longitude)
	}

	forecast, err := s.forecasts.Forecast(ctx, location)
	if err != nil {
		forecast = nil
	}

	s.logger.Info("location resolved",
		zap.Float64("latitude", location.Latitude),
		zap.Float64("longitude", location.Longitude),
		zap.String("timezone", timezone),
		zap.Bool("in_uk", location.InUK),
		zap.Bool("forecast", forecast != nil))

	return domain.SuccessEnvelope(location, timezone, forecast)
}
