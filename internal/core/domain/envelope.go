package domain

import (
	"encoding/json"
	"errors"
)

// Request is the transport-neutral inbound request. Exactly one shape is set:
// Place for a forward lookup, or Point for a reverse lookup.
type Request struct {
	Place string
	Point *Coordinates
}

// IsPlace reports whether the request is a by-place lookup.
func (r Request) IsPlace() bool {
	return r.Point == nil
}

// Envelope is the uniform response returned to every transport. A non-empty
// ErrorKind makes it an error envelope; otherwise it is a success envelope.
type Envelope struct {
	Location *LocationRecord
	Timezone string
	Forecast ForecastPayload

	ErrorKind ErrorKind
	Message   string
}

// IsError reports whether this is an error envelope.
func (e Envelope) IsError() bool {
	return e.ErrorKind != ""
}

// Outcome labels the envelope for metrics: "ok" or the error kind.
func (e Envelope) Outcome() string {
	if e.IsError() {
		return string(e.ErrorKind)
	}

	return "ok"
}

// SuccessEnvelope assembles a success response. An empty timezone or a nil
// forecast serialize as JSON null.
func SuccessEnvelope(location LocationRecord, timezone string, forecast ForecastPayload) Envelope {
	return Envelope{
		Location: &location,
		Timezone: timezone,
		Forecast: forecast,
	}
}

// ErrorEnvelope assembles an error response.
func ErrorEnvelope(kind ErrorKind, message string) Envelope {
	return Envelope{ErrorKind: kind, Message: message}
}

// EnvelopeFromError converts an error into an error envelope, defaulting to
// GEOCODE_ERROR when err carries no kind.
func EnvelopeFromError(err error) Envelope {
	var e *ResolutionError

	if errors.As(err, &e) {
		return ErrorEnvelope(e.Kind, e.Message)
	}

	return ErrorEnvelope(GeocodeError, err.Error())
}

type successWire struct {
	Location *LocationRecord `json:"location"`
	Timezone *string         `json:"timezone"`
	Forecast json.RawMessage `json:"forecast"`
}

type errorWire struct {
	ErrorKind ErrorKind `json:"errorKind"`
	Message   string    `json:"message"`
}

// MarshalJSON writes either the success or the error shape.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.IsError() {
		return json.Marshal(errorWire{ErrorKind: e.ErrorKind, Message: e.Message})
	}

	wire := successWire{Location: e.Location}

	if e.Timezone != "" {
		tz := e.Timezone
		wire.Timezone = &tz
	}

	if len(e.Forecast) > 0 {
		wire.Forecast = json.RawMessage(e.Forecast)
	} else {
		wire.Forecast = json.RawMessage("null")
	}

	return json.Marshal(wire)
}

// UnmarshalJSON reads either shape back, used by clients and tests.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var probe struct {
		ErrorKind ErrorKind `json:"errorKind"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if probe.ErrorKind != "" {
		var wire errorWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return err
		}

		*e = ErrorEnvelope(wire.ErrorKind, wire.Message)

		return nil
	}

	var wire successWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*e = Envelope{Location: wire.Location}

	if wire.Timezone != nil {
		e.Timezone = *wire.Timezone
	}

	if len(wire.Forecast) > 0 && string(wire.Forecast) != "null" {
		e.Forecast = ForecastPayload(wire.Forecast)
	}

	return nil
}
