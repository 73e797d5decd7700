package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
)

func TestDispatcher_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "unknown field", payload: `{"foo": 1}`},
		{name: "empty object", payload: `{}`},
		{name: "not json", payload: `place=Tokyo`},
		{name: "array", payload: `[{"place":"Tokyo"}]`},
		{name: "null", payload: `null`},
		{name: "empty body", payload: ``},
		{name: "place and point", payload: `{"place":"Tokyo","lat":1,"lon":2}`},
		{name: "lat without lon", payload: `{"lat": 1}`},
		{name: "place null", payload: `{"place": null}`},
		{name: "place wrong type", payload: `{"place": 42}`},
		{name: "blank place", payload: `{"place": "   "}`},
		{name: "place too long", payload: `{"place":"` + strings.Repeat("a", 257) + `"}`},
		{name: "latitude out of range", payload: `{"lat": 91, "lon": 0}`},
		{name: "longitude out of range", payload: `{"lat": 0, "lon": -181}`},
		{name: "coordinates as strings", payload: `{"lat": "51.5", "lon": "0"}`},
		{name: "trailing data", payload: `{"place":"Tokyo"} {"place":"Paris"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockResolutionService)
			dispatcher := NewDispatcher(service, zap.NewNop())

			env := dispatcher.Dispatch(context.Background(), []byte(tt.payload))

			assert.Equal(t, domain.BadRequest, env.ErrorKind)
			assert.NotEmpty(t, env.Message)
			service.AssertNotCalled(t, "ByPlace", mock.Anything, mock.Anything)
			service.AssertNotCalled(t, "ByPoint", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDispatcher_PassesEnvelopeThrough(t *testing.T) {
	tokyo := domain.SuccessEnvelope(domain.LocationRecord{Latitude: 35.6895, Longitude: 139.6917}, "Asia/Tokyo", nil)
	notFound := domain.ErrorEnvelope(domain.GeocodeError, "no location found")

	service := new(MockResolutionService)
	service.On("ByPlace", mock.Anything, "Tokyo").Return(tokyo)
	service.On("ByPoint", mock.Anything, 0.0, -30.0).Return(notFound)

	dispatcher := NewDispatcher(service, zap.NewNop())

	assert.Equal(t, tokyo, dispatcher.Dispatch(context.Background(), []byte(`{"place": "  Tokyo "}`)))
	assert.Equal(t, notFound, dispatcher.Dispatch(context.Background(), []byte(`{"lat": 0, "lon": -30}`)))

	service.AssertExpectations(t)
}

func TestDispatcher_Handle(t *testing.T) {
	service := new(MockResolutionService)
	service.On("ByPoint", mock.Anything, 51.5, -0.12).Return(domain.SuccessEnvelope(domain.LocationRecord{}, "", nil))

	dispatcher := NewDispatcher(service, zap.NewNop())

	env := dispatcher.Handle(context.Background(), domain.Request{Point: &domain.Coordinates{Latitude: 51.5, Longitude: -0.12}})
	assert.False(t, env.IsError())

	env = dispatcher.Handle(context.Background(), domain.Request{Point: &domain.Coordinates{Latitude: 100, Longitude: 0}})
	assert.Equal(t, domain.BadRequest, env.ErrorKind)

	service.AssertNumberOfCalls(t, "ByPoint", 1)
}

func TestParseRequest(t *testing.T) {
	req, err := ParseRequest([]byte(`{"place":"Leeds"}`))
	require.NoError(t, err)
	assert.True(t, req.IsPlace())
	assert.Equal(t, "Leeds", req.Place)

	req, err = ParseRequest([]byte(`{"lat":-33.8688,"lon":151.2093}`))
	require.NoError(t, err)
	require.False(t, req.IsPlace())
	assert.Equal(t, domain.Coordinates{Latitude: -33.8688, Longitude: 151.2093}, *req.Point)

	_, err = ParseRequest([]byte(`{"foo":1}`))
	assert.Equal(t, domain.BadRequest, domain.KindOf(err))
}
