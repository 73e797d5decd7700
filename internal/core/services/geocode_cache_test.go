package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

var tokyoMatch = &ports.GeocodeResult{
	Latitude:  35.6895,
	Longitude: 139.6917,
	Raw:       json.RawMessage(`{"lat":"35.6895","lon":"139.6917","display_name":"Tokyo, Japan"}`),
}

func TestGeocodeCache_Idempotent(t *testing.T) {
	provider := new(MockGeocodeProvider)
	provider.On("Search", mock.Anything, "Tokyo").Return(tokyoMatch, nil).Once()

	geocodes := NewGeocodeCache(provider, newMemoryStore(t), nil, zap.NewNop())

	first, err := geocodes.Resolve(context.Background(), "Tokyo")
	require.NoError(t, err)

	second, err := geocodes.Resolve(context.Background(), "  TOKYO ")
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, firstJSON, secondJSON)
	assert.Equal(t, "Tokyo, Japan", second.DisplayName)
	assert.False(t, second.InUK)
	provider.AssertNumberOfCalls(t, "Search", 1)
}

func TestGeocodeCache_Failures(t *testing.T) {
	tests := []struct {
		name        string
		providerErr error
		wantMessage string
	}{
		{name: "no match", providerErr: domain.ErrNoMatch, wantMessage: "no location found for \"Atlantis\""},
		{name: "provider down", providerErr: errors.New("503 Service Unavailable"), wantMessage: "geocoding \"Atlantis\" failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(MockGeocodeProvider)
			provider.On("Search", mock.Anything, "Atlantis").Return(nil, tt.providerErr)

			geocodes := NewGeocodeCache(provider, newMemoryStore(t), nil, zap.NewNop())

			for i := 0; i < 2; i++ {
				_, err := geocodes.Resolve(context.Background(), "Atlantis")

				var resolutionErr *domain.ResolutionError
				require.ErrorAs(t, err, &resolutionErr)
				assert.Equal(t, domain.GeocodeError, resolutionErr.Kind)
				assert.Equal(t, tt.wantMessage, resolutionErr.Message)
				assert.ErrorIs(t, err, tt.providerErr)
			}

			provider.AssertNumberOfCalls(t, "Search", 2)
			assert.Equal(t, 0, geocodes.Len(), "failures are never cached")
		})
	}
}

func TestGeocodeCache_RejectsInvalidCoordinates(t *testing.T) {
	provider := new(MockGeocodeProvider)
	provider.On("Search", mock.Anything, "Nowhere").
		Return(&ports.GeocodeResult{Latitude: 123, Longitude: 0, Raw: json.RawMessage(`{}`)}, nil)

	geocodes := NewGeocodeCache(provider, newMemoryStore(t), nil, zap.NewNop())

	_, err := geocodes.Resolve(context.Background(), "Nowhere")
	assert.Equal(t, domain.GeocodeError, domain.KindOf(err))
	assert.Equal(t, 0, geocodes.Len())
}

func TestGeocodeCache_EmptyPlace(t *testing.T) {
	provider := new(MockGeocodeProvider)
	geocodes := NewGeocodeCache(provider, newMemoryStore(t), nil, zap.NewNop())

	_, err := geocodes.Resolve(context.Background(), "   ")
	assert.Equal(t, domain.GeocodeError, domain.KindOf(err))
	provider.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestGeocodeCache_Seed(t *testing.T) {
	provider := new(MockGeocodeProvider)
	geocodes := NewGeocodeCache(provider, newMemoryStore(t), nil, zap.NewNop())

	home := domain.LocationRecord{
		Latitude:    53.8008,
		Longitude:   -1.5491,
		DisplayName: "Home",
		Raw:         json.RawMessage(`{"source":"config"}`),
		InUK:        true,
	}

	geocodes.Seed(context.Background(), "Home", home)

	record, err := geocodes.Resolve(context.Background(), "home")
	require.NoError(t, err)
	assert.Equal(t, home, record)
	provider.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestNormalizeForward_UKFromAddress(t *testing.T) {
	record := normalizeForward(&ports.GeocodeResult{
		Latitude:  51.5074,
		Longitude: -0.1278,
		Raw:       json.RawMessage(`{"display_name":"London","address":{"country_code":"gb"}}`),
	})

	assert.True(t, record.InUK)
	assert.Equal(t, "London", record.DisplayName)

	record = normalizeForward(&ports.GeocodeResult{Latitude: 1, Longitude: 2, Raw: json.RawMessage(`not json`)})
	assert.Empty(t, record.DisplayName)
	assert.False(t, record.InUK)
}

// barrierGeocoder blocks every Search until expected calls have arrived, so
// concurrent misses are guaranteed to overlap.
type barrierGeocoder struct {
	arrived sync.WaitGroup
	calls   atomic.Int32
}

func (b *barrierGeocoder) Search(_ context.Context, _ string) (*ports.GeocodeResult, error) {
	n := b.calls.Add(1)

	b.arrived.Done()
	b.arrived.Wait()

	return &ports.GeocodeResult{
		Latitude:  35.6895,
		Longitude: 139.6917,
		Raw:       json.RawMessage(`{"call":` + string(rune('0'+n)) + `}`),
	}, nil
}

func TestGeocodeCache_ConcurrentMissesBothCallUpstream(t *testing.T) {
	provider := &barrierGeocoder{}
	provider.arrived.Add(2)

	geocodes := NewGeocodeCache(provider, newMemoryStore(t), nil, zap.NewNop())

	var wg sync.WaitGroup

	results := make([]domain.LocationRecord, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			record, err := geocodes.Resolve(context.Background(), "Tokyo")
			assert.NoError(t, err)

			results[i] = record
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(2), provider.calls.Load())
	assert.Equal(t, 1, geocodes.Len())

	cached, err := geocodes.Resolve(context.Background(), "tokyo")
	require.NoError(t, err)
	assert.Contains(t, []string{string(results[0].Raw), string(results[1].Raw)}, string(cached.Raw))
	assert.Equal(t, int32(2), provider.calls.Load(), "later lookups hit the cache")
}
