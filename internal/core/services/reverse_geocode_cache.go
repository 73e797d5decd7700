package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

// ReverseGeocodeCache resolves coordinates to locations. Keys are rounded to
// three decimals so that nearby requests share one entry; capacity and LRU
// eviction are enforced by the store.
type ReverseGeocodeCache struct {
	provider ports.ReverseGeocodeProvider
	store    ports.Store[domain.LocationRecord]
	metrics  ports.CacheMetrics
	logger   *zap.Logger
}

// NewReverseGeocodeCache creates a ReverseGeocodeCache over a bounded store.
func NewReverseGeocodeCache(provider ports.ReverseGeocodeProvider, store ports.Store[domain.LocationRecord], metrics ports.CacheMetrics, logger *zap.Logger) *ReverseGeocodeCache {
	return &ReverseGeocodeCache{
		provider: provider,
		store:    store,
		metrics:  metricsOrNoop(metrics),
		logger:   logger,
	}
}

// Len returns the number of cached points.
func (c *ReverseGeocodeCache) Len() int {
	return c.store.Len()
}

// Resolve returns the location for a coordinate pair.
//
// Parameters:
//   - ctx: Context for the provider call
//   - lat: Latitude in decimal degrees
//   - lon: Longitude in decimal degrees
//
// Returns:
//   - domain.LocationRecord: Cached or freshly resolved record
//   - error: *domain.ResolutionError of kind GEOCODE_ERROR on failure
func (c *ReverseGeocodeCache) Resolve(ctx context.Context, lat, lon float64) (domain.LocationRecord, error) {
	coords := domain.Coordinates{Latitude: lat, Longitude: lon}
	if err := coords.Validate(); err != nil {
		return domain.LocationRecord{}, domain.NewGeocodeError("invalid coordinates", err)
	}

	key := PointKey(lat, lon)

	if record, ok := c.store.Get(ctx, key); ok {
		c.metrics.RecordCacheHit(ctx, reverseGeocodeCacheName)
		c.logger.Debug("reverse geocode cache hit", zap.String("key", key))

		return record, nil
	}

	c.metrics.RecordCacheMiss(ctx, reverseGeocodeCacheName)
	c.logger.Debug("reverse geocode cache miss", zap.String("key", key))

	result, err := c.provider.Reverse(ctx, coords)
	if err != nil {
		c.logger.Warn("reverse geocode failed",
			zap.Float64("latitude", lat),
			zap.Float64("longitude", lon),
			zap.Error(err))

		if errors.Is(err, domain.ErrNoMatch) {
			return domain.LocationRecord{}, domain.NewGeocodeError(fmt.Sprintf("no location found at %s", key), err)
		}

		return domain.LocationRecord{}, domain.NewGeocodeError(fmt.Sprintf("reverse geocoding %s failed", key), err)
	}

	record := normalizeReverse(coords, result)
	c.store.Set(ctx, key, record)

	return record, nil
}

// normalizeReverse never fails: a missing or malformed address falls back
// to the provider's own label.
func normalizeReverse(coords domain.Coordinates, result *ports.ReverseResult) domain.LocationRecord {
	record := domain.LocationRecord{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		Raw:       result.Raw,
	}

	record.DisplayName = composeDisplayName(result.Address)
	if record.DisplayName == "" {
		if tree, err := domain.DecodeTree(result.Raw); err == nil {
			record.DisplayName, _ = domain.LookupString(tree, "display_name")
		}
	}

	address, _ := result.Address.(map[string]any)
	record.InUK = domain.MentionsUK(record.DisplayName) || domain.AddressInUK(address)

	return record
}

// composeDisplayName joins [suburb, city, state], skipping an absent suburb.
// It returns "" unless both city and state are present.
func composeDisplayName(address domain.Tree) string {
	city, hasCity := domain.LookupString(address, "city")
	state, hasState := domain.LookupString(address, "state")

	if !hasCity || !hasState {
		return ""
	}

	parts := make([]string, 0, 3)

	if suburb, ok := domain.LookupString(address, "suburb"); ok {
		parts = append(parts, suburb)
	}

	return strings.Join(append(parts, city, state), ", ")
}
