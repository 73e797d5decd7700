package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

// inboundMessage accepts either {"place"} or {"lat","lon"}; pointers tell an
// absent field from a zero value.
type inboundMessage struct {
	Place *string  `json:"place"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
}

type placeRequest struct {
	Place string `validate:"required,max=256"`
}

type pointRequest struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

type dispatcher struct {
	service  ports.ResolutionService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewDispatcher creates the transport-neutral request dispatcher shared by
// every binding.
func NewDispatcher(service ports.ResolutionService, logger *zap.Logger) ports.Dispatcher {
	return &dispatcher{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// Dispatch parses payload strictly and resolves it. Unknown fields,
// trailing data or an ambiguous shape produce BAD_REQUEST without touching
// the service.
func (d *dispatcher) Dispatch(ctx context.Context, payload []byte) domain.Envelope {
	req, err := ParseRequest(payload)
	if err != nil {
		d.logger.Info("rejected inbound message", zap.Error(err))
		return domain.EnvelopeFromError(err)
	}

	return d.Handle(ctx, req)
}

// Handle validates an already parsed request and resolves it.
func (d *dispatcher) Handle(ctx context.Context, req domain.Request) domain.Envelope {
	if req.IsPlace() {
		place := strings.TrimSpace(req.Place)

		if err := d.validate.Struct(placeRequest{Place: place}); err != nil {
			d.logger.Info("invalid place request", zap.Error(err))
			return domain.ErrorEnvelope(domain.BadRequest, "place must be a non-empty string of at most 256 characters")
		}

		return d.service.ByPlace(ctx, place)
	}

	point := pointRequest{Lat: req.Point.Latitude, Lon: req.Point.Longitude}

	if err := d.validate.Struct(point); err != nil {
		d.logger.Info("invalid point request", zap.Error(err))
		return domain.ErrorEnvelope(domain.BadRequest, "lat must be within [-90, 90] and lon within [-180, 180]")
	}

	return d.service.ByPoint(ctx, point.Lat, point.Lon)
}

// ParseRequest decodes one inbound JSON message into a request of exactly
// one shape.
//
// Parameters:
//   - payload: Raw JSON message from any transport
//
// Returns:
//   - domain.Request: Place or point request
//   - error: *domain.ResolutionError of kind BAD_REQUEST
func ParseRequest(payload []byte) (domain.Request, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()

	var msg inboundMessage

	if err := decoder.Decode(&msg); err != nil {
		return domain.Request{}, domain.NewBadRequestError("malformed request: expected {\"place\"} or {\"lat\", \"lon\"}")
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return domain.Request{}, domain.NewBadRequestError("malformed request: trailing data after JSON object")
	}

	switch {
	case msg.Place != nil && msg.Lat == nil && msg.Lon == nil:
		return domain.Request{Place: *msg.Place}, nil
	case msg.Place == nil && msg.Lat != nil && msg.Lon != nil:
		return domain.Request{Point: &domain.Coordinates{Latitude: *msg.Lat, Longitude: *msg.Lon}}, nil
	default:
		return domain.Request{}, domain.NewBadRequestError("unrecognized request shape: expected {\"place\"} or {\"lat\", \"lon\"}")
	}
}
