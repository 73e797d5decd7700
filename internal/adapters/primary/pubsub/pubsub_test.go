package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
)

// fakeService answers every place with Tokyo and every point with London,
// recording each call.
type fakeService struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeService) ByPlace(_ context.Context, name string) domain.Envelope {
	f.record("place:" + name)

	return domain.SuccessEnvelope(domain.LocationRecord{
		Latitude:    35.6895,
		Longitude:   139.6917,
		DisplayName: "Tokyo, Japan",
		Raw:         json.RawMessage(`{}`),
	}, "Asia/Tokyo", domain.ForecastPayload(`{"type":"Feature"}`))
}

func (f *fakeService) ByPoint(_ context.Context, _, _ float64) domain.Envelope {
	f.record("point")

	return domain.SuccessEnvelope(domain.LocationRecord{
		Latitude:  51.507,
		Longitude: -0.128,
		Raw:       json.RawMessage(`{}`),
		InUK:      true,
	}, "Europe/London", nil)
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: make(map[string]int)}
}

func (f *fakeMetrics) RecordResolution(_ context.Context, transport, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outcomes[transport+"/"+outcome]++
}

func (f *fakeMetrics) Count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.outcomes[key]
}
