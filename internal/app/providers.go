package app

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
	"github.com/sean-rowe/weather-resolver/internal/infrastructure/circuitbreaker"
)

// ProviderMetrics records upstream calls. *observability.Telemetry
// implements it.
type ProviderMetrics interface {
	RecordProviderCall(ctx context.Context, provider, operation string, duration time.Duration, err error)
}

// isProviderSuccess counts a "no match" answer as a successful call.
func isProviderSuccess(err error) bool {
	return err == nil || errors.Is(err, domain.ErrNoMatch)
}

// guard runs fn through breaker and records the call.
func guard(ctx context.Context, breaker *circuitbreaker.Breaker, metrics ProviderMetrics, operation string, fn func() error) error {
	started := time.Now()

	err := breaker.Execute(ctx, operation, fn)

	if metrics != nil {
		metrics.RecordProviderCall(ctx, breaker.Name(), operation, time.Since(started), err)
	}

	return err
}

// GuardedGeocoder wraps a geocoding client with circuit breaker protection.
// One breaker covers both directions since they share an upstream.
type GuardedGeocoder struct {
	forward ports.GeocodeProvider
	reverse ports.ReverseGeocodeProvider
	breaker *circuitbreaker.Breaker
	metrics ProviderMetrics
}

// Search implements ports.GeocodeProvider.
func (g *GuardedGeocoder) Search(ctx context.Context, place string) (*ports.GeocodeResult, error) {
	var result *ports.GeocodeResult

	err := guard(ctx, g.breaker, g.metrics, "search", func() error {
		var err error
		result, err = g.forward.Search(ctx, place)

		return err
	})

	return result, err
}

// Reverse implements ports.ReverseGeocodeProvider.
func (g *GuardedGeocoder) Reverse(ctx context.Context, coords domain.Coordinates) (*ports.ReverseResult, error) {
	var result *ports.ReverseResult

	err := guard(ctx, g.breaker, g.metrics, "reverse", func() error {
		var err error
		result, err = g.reverse.Reverse(ctx, coords)

		return err
	})

	return result, err
}

// GuardedWeather wraps a weather provider with circuit breaker protection.
type GuardedWeather struct {
	provider ports.WeatherProvider
	breaker  *circuitbreaker.Breaker
	metrics  ProviderMetrics
}

// Name implements ports.WeatherProvider.
func (w *GuardedWeather) Name() string {
	return w.provider.Name()
}

// Fetch implements ports.WeatherProvider.
func (w *GuardedWeather) Fetch(ctx context.Context, coords domain.Coordinates) (domain.ForecastPayload, error) {
	var payload domain.ForecastPayload

	err := guard(ctx, w.breaker, w.metrics, "forecast", func() error {
		var err error
		payload, err = w.provider.Fetch(ctx, coords)

		return err
	})

	return payload, err
}

// breakerDefaults converts configured thresholds into breaker settings.
func breakerDefaults(maxRequests uint32, interval, timeout time.Duration, onChange func(name string, from, to gobreaker.State)) circuitbreaker.Config {
	return circuitbreaker.Config{
		MaxRequests:   maxRequests,
		Interval:      interval,
		Timeout:       timeout,
		IsSuccessful:  isProviderSuccess,
		OnStateChange: onChange,
	}
}
