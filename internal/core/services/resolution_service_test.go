package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

type pipeline struct {
	geocoder  *MockGeocodeProvider
	reverse   *MockReverseGeocodeProvider
	timezones *MockTimezoneResolver
	uk        *fakeWeather
	worldwide *fakeWeather
	service   ports.ResolutionService
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	p := &pipeline{
		geocoder:  new(MockGeocodeProvider),
		reverse:   new(MockReverseGeocodeProvider),
		timezones: new(MockTimezoneResolver),
		uk:        newFakeWeather("metoffice", `{"source":"metoffice"}`),
		worldwide: newFakeWeather("met.no", `{"source":"met.no"}`),
	}

	logger := zap.NewNop()

	p.service = NewResolutionService(
		NewGeocodeCache(p.geocoder, newMemoryStore(t), nil, logger),
		NewReverseGeocodeCache(p.reverse, newLRUStore(t, 1000), nil, logger),
		newForecastCache(t, NewForecastRouter(p.uk, p.worldwide), clockwork.NewFakeClock()),
		p.timezones,
		logger,
	)

	return p
}

func TestResolutionService_ByPlace(t *testing.T) {
	p := newPipeline(t)
	p.geocoder.On("Search", mock.Anything, "Tokyo").Return(tokyoMatch, nil)
	p.timezones.On("At", 35.6895, 139.6917).Return("Asia/Tokyo", true)

	env := p.service.ByPlace(context.Background(), "Tokyo")

	require.False(t, env.IsError())
	require.NotNil(t, env.Location)
	assert.Equal(t, 35.6895, env.Location.Latitude)
	assert.False(t, env.Location.InUK)
	assert.Equal(t, "Asia/Tokyo", env.Timezone)
	assert.JSONEq(t, `{"source":"met.no"}`, string(env.Forecast))
	assert.Equal(t, int32(1), p.worldwide.calls.Load())
	assert.Equal(t, int32(0), p.uk.calls.Load())
}

func TestResolutionService_ByPlaceGeocodeFailure(t *testing.T) {
	p := newPipeline(t)
	p.geocoder.On("Search", mock.Anything, "Atlantis").Return(nil, domain.ErrNoMatch)

	env := p.service.ByPlace(context.Background(), "Atlantis")

	assert.True(t, env.IsError())
	assert.Equal(t, domain.GeocodeError, env.ErrorKind)
	assert.Nil(t, env.Location)
	assert.Equal(t, int32(0), p.worldwide.calls.Load())
	p.timezones.AssertNotCalled(t, "At", mock.Anything, mock.Anything)
}

func TestResolutionService_ForecastFailureIsSoft(t *testing.T) {
	p := newPipeline(t)
	p.worldwide.err = errors.New("timeout")
	p.geocoder.On("Search", mock.Anything, "Tokyo").Return(tokyoMatch, nil)
	p.timezones.On("At", mock.Anything, mock.Anything).Return("Asia/Tokyo", true)

	env := p.service.ByPlace(context.Background(), "Tokyo")

	require.False(t, env.IsError())
	assert.Nil(t, env.Forecast)
	assert.Equal(t, "Asia/Tokyo", env.Timezone)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"forecast":null`)
}

func TestResolutionService_ByPointInUK(t *testing.T) {
	p := newPipeline(t)
	p.reverse.On("Reverse", mock.Anything, domain.Coordinates{Latitude: 51.5074, Longitude: -0.1278}).
		Return(reverseResult(t, `{"display_name":"Westminster, London, United Kingdom","address":{"suburb":"Westminster","city":"London","state":"England"}}`), nil)
	p.timezones.On("At", 51.5074, -0.1278).Return("Europe/London", true)

	env := p.service.ByPoint(context.Background(), 51.5074, -0.1278)

	require.False(t, env.IsError())
	assert.Equal(t, "Westminster, London, England", env.Location.DisplayName)
	assert.True(t, env.Location.InUK)
	assert.Equal(t, "Europe/London", env.Timezone)
	assert.JSONEq(t, `{"source":"metoffice"}`, string(env.Forecast))
	assert.Equal(t, int32(1), p.uk.calls.Load())
	assert.Equal(t, int32(0), p.worldwide.calls.Load())
}

func TestResolutionService_NoTimezone(t *testing.T) {
	p := newPipeline(t)
	p.reverse.On("Reverse", mock.Anything, mock.Anything).Return(reverseResult(t, `{"display_name":"Somewhere at sea"}`), nil)
	p.timezones.On("At", mock.Anything, mock.Anything).Return("", false)

	env := p.service.ByPoint(context.Background(), 0, -30)

	require.False(t, env.IsError())
	assert.Empty(t, env.Timezone)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timezone":null`)
}
