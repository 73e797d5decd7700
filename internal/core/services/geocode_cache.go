package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

// GeocodeCache resolves place names to locations, consulting the forward
// geocoding provider only on a miss. It has no eviction policy of its own;
// the store decides.
type GeocodeCache struct {
	provider ports.GeocodeProvider
	store    ports.Store[domain.LocationRecord]
	metrics  ports.CacheMetrics
	logger   *zap.Logger
}

// NewGeocodeCache creates a GeocodeCache.
//
// Parameters:
//   - provider: Forward geocoding provider consulted on misses
//   - store: Concurrency-safe store holding resolved records
//   - metrics: Hit/miss recorder, may be nil
//   - logger: Zap logger for cache operations
//
// Returns:
//   - *GeocodeCache: Ready-to-use cache
func NewGeocodeCache(provider ports.GeocodeProvider, store ports.Store[domain.LocationRecord], metrics ports.CacheMetrics, logger *zap.Logger) *GeocodeCache {
	return &GeocodeCache{
		provider: provider,
		store:    store,
		metrics:  metricsOrNoop(metrics),
		logger:   logger,
	}
}

// Seed inserts a known location under name without calling the provider.
func (c *GeocodeCache) Seed(ctx context.Context, name string, record domain.LocationRecord) {
	c.store.Set(ctx, PlaceKey(name), record)
}

// Len returns the number of cached places.
func (c *GeocodeCache) Len() int {
	return c.store.Len()
}

// Resolve returns the location for a place name.
//
// Parameters:
//   - ctx: Context for the provider call
//   - place: Place name as the client sent it
//
// Returns:
//   - domain.LocationRecord: Cached or freshly resolved record
//   - error: *domain.ResolutionError of kind GEOCODE_ERROR on failure
func (c *GeocodeCache) Resolve(ctx context.Context, place string) (domain.LocationRecord, error) {
	key := PlaceKey(place)
	if key == "" {
		return domain.LocationRecord{}, domain.NewGeocodeError("place name is empty", nil)
	}

	if record, ok := c.store.Get(ctx, key); ok {
		c.metrics.RecordCacheHit(ctx, geocodeCacheName)
		c.logger.Debug("geocode cache hit", zap.String("key", key))

		return record, nil
	}

	c.metrics.RecordCacheMiss(ctx, geocodeCacheName)
	c.logger.Debug("geocode cache miss", zap.String("key", key))

	result, err := c.provider.Search(ctx, place)
	if err != nil {
		c.logger.Warn("forward geocode failed", zap.String("place", place), zap.Error(err))

		if errors.Is(err, domain.ErrNoMatch) {
			return domain.LocationRecord{}, domain.NewGeocodeError(fmt.Sprintf("no location found for %q", place), err)
		}

		return domain.LocationRecord{}, domain.NewGeocodeError(fmt.Sprintf("geocoding %q failed", place), err)
	}

	record := normalizeForward(result)

	if err := record.Coordinates().Validate(); err != nil {
		return domain.LocationRecord{}, domain.NewGeocodeError(fmt.Sprintf("geocoder returned invalid coordinates for %q", place), err)
	}

	c.store.Set(ctx, key, record)

	return record, nil
}

// normalizeForward only needs the coordinates; the label and UK flag come
// from the match object when the provider includes them.
func normalizeForward(result *ports.GeocodeResult) domain.LocationRecord {
	record := domain.LocationRecord{
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
		Raw:       result.Raw,
	}

	tree, err := domain.DecodeTree(result.Raw)
	if err != nil {
		return record
	}

	record.DisplayName, _ = domain.LookupString(tree, "display_name")

	address, _ := domain.LookupObject(tree, "address")
	record.InUK = domain.MentionsUK(record.DisplayName) || domain.AddressInUK(address)

	return record
}
