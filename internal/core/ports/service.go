package ports

import (
	"context"
	"time"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
)

// ResolutionService resolves the two supported request shapes into a
// single envelope each. It never returns an error: failures are carried in
// the envelope.
type ResolutionService interface {
	ByPlace(ctx context.Context, name string) domain.Envelope
	ByPoint(ctx context.Context, lat, lon float64) domain.Envelope
}

// Dispatcher turns one inbound message into exactly one envelope.
type Dispatcher interface {
	// Dispatch parses a raw JSON message and resolves it.
	Dispatch(ctx context.Context, payload []byte) domain.Envelope

	// Handle resolves an already parsed request.
	Handle(ctx context.Context, req domain.Request) domain.Envelope
}

// ResolutionMetrics records one dispatched request per transport. outcome
// is "ok" or the envelope's error kind.
type ResolutionMetrics interface {
	RecordResolution(ctx context.Context, transport, outcome string, duration time.Duration)
}
