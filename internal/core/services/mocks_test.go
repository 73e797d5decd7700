// Package services contain unit tests for the resolution pipeline.
package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
	"github.com/sean-rowe/weather-resolver/internal/infrastructure/cache"
)

// MockGeocodeProvider is a mock implementation of the GeocodeProvider interface.
type MockGeocodeProvider struct {
	mock.Mock
}

// Search mocks the forward geocoding call.
//
// Parameters:
//   - ctx: Context for the request
//   - place: Place name as sent by the client
//
// Returns:
//   - *ports.GeocodeResult: Mocked match
//   - error: Mocked error if configured
func (m *MockGeocodeProvider) Search(ctx context.Context, place string) (*ports.GeocodeResult, error) {
	args := m.Called(ctx, place)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*ports.GeocodeResult), args.Error(1)
}

// MockReverseGeocodeProvider is a mock implementation of the ReverseGeocodeProvider interface.
type MockReverseGeocodeProvider struct {
	mock.Mock
}

// Reverse mocks the reverse geocoding call.
func (m *MockReverseGeocodeProvider) Reverse(ctx context.Context, coords domain.Coordinates) (*ports.ReverseResult, error) {
	args := m.Called(ctx, coords)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*ports.ReverseResult), args.Error(1)
}

// MockTimezoneResolver is a mock implementation of the TimezoneResolver interface.
type MockTimezoneResolver struct {
	mock.Mock
}

// At mocks the timezone lookup.
func (m *MockTimezoneResolver) At(lat, lon float64) (string, bool) {
	args := m.Called(lat, lon)
	return args.String(0), args.Bool(1)
}

// MockResolutionService is a mock implementation of the ResolutionService interface.
type MockResolutionService struct {
	mock.Mock
}

// ByPlace mocks resolution by place name.
func (m *MockResolutionService) ByPlace(ctx context.Context, name string) domain.Envelope {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.Envelope)
}

// ByPoint mocks resolution by coordinates.
func (m *MockResolutionService) ByPoint(ctx context.Context, lat, lon float64) domain.Envelope {
	args := m.Called(ctx, lat, lon)
	return args.Get(0).(domain.Envelope)
}

// fakeWeather is a WeatherProvider that counts calls.
type fakeWeather struct {
	name    string
	payload domain.ForecastPayload
	err     error
	calls   atomic.Int32
}

func (f *fakeWeather) Name() string {
	return f.name
}

func (f *fakeWeather) Fetch(_ context.Context, _ domain.Coordinates) (domain.ForecastPayload, error) {
	f.calls.Add(1)

	if f.err != nil {
		return nil, f.err
	}

	return f.payload, nil
}

func newFakeWeather(name, payload string) *fakeWeather {
	return &fakeWeather{name: name, payload: domain.ForecastPayload(payload)}
}

func newMemoryStore(t *testing.T) ports.Store[domain.LocationRecord] {
	t.Helper()
	return cache.NewMemoryStore[domain.LocationRecord]("geocode", zap.NewNop())
}

func newLRUStore(t *testing.T, capacity int) ports.Store[domain.LocationRecord] {
	t.Helper()

	store, err := cache.NewLRUStore[domain.LocationRecord]("reverse_geocode", capacity, zap.NewNop())
	require.NoError(t, err)

	return store
}
