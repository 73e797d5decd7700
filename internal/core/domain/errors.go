package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for clients. It is the errorKind field of an
// error envelope.
type ErrorKind string

const (
	// GeocodeError means forward or reverse geocoding failed: no match,
	// provider error, or network failure.
	GeocodeError ErrorKind = "GEOCODE_ERROR"

	// ForecastError means the selected weather provider failed. It is soft:
	// the response still carries location and timezone with a null forecast.
	ForecastError ErrorKind = "FORECAST_ERROR"

	// BadRequest means the inbound message was malformed or had an
	// unrecognized shape.
	BadRequest ErrorKind = "BAD_REQUEST"
)

var (
	// ErrNoMatch is returned by providers that answered but found nothing.
	ErrNoMatch = errors.New("no match")

	// ErrMalformedPayload is returned when a provider answered with a body
	// that could not be decoded.
	ErrMalformedPayload = errors.New("malformed provider payload")
)

// ResolutionError carries a failure converted into the client taxonomy at
// the cache-miss boundary.
type ResolutionError struct {
	// Kind identifies the failure class for programmatic handling
	Kind ErrorKind

	// Message provides a human-readable description
	Message string

	// Cause wraps the underlying provider error if any
	Cause error
}

// Error formats the kind, message and underlying cause.
func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// NewGeocodeError wraps a geocoding failure.
func NewGeocodeError(message string, cause error) *ResolutionError {
	return &ResolutionError{Kind: GeocodeError, Message: message, Cause: cause}
}

// NewForecastError wraps a forecast provider failure.
func NewForecastError(message string, cause error) *ResolutionError {
	return &ResolutionError{Kind: ForecastError, Message: message, Cause: cause}
}

// NewBadRequestError describes a rejected inbound message.
func NewBadRequestError(message string) *ResolutionError {
	return &ResolutionError{Kind: BadRequest, Message: message}
}

// KindOf extracts the ErrorKind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *ResolutionError

	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}
