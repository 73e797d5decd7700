package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// LRUStore is a fixed-capacity store that evicts the least recently used
// entry when a new key would exceed capacity. A Get counts as a use.
type LRUStore[V any] struct {
	name   string
	cache  *lru.Cache[string, V]
	logger *zap.Logger
}

// NewLRUStore creates a bounded LRU store.
//
// Parameters:
//   - name: Cache name used in spans and logs
//   - capacity: Maximum number of entries, must be positive
//   - logger: Zap logger for cache operations
//
// Returns:
//   - *LRUStore[V]: Empty store
//   - error: If capacity is not positive
func NewLRUStore[V any](name string, capacity int, logger *zap.Logger) (*LRUStore[V], error) {
	store := &LRUStore[V]{name: name, logger: logger}

	cache, err := lru.NewWithEvict[string, V](capacity, store.onEvict)
	if err != nil {
		return nil, fmt.Errorf("creating %s LRU store: %w", name, err)
	}

	store.cache = cache

	return store, nil
}

// Get retrieves a value and marks it most recently used.
func (s *LRUStore[V]) Get(ctx context.Context, key string) (V, bool) {
	span := startSpan(ctx, "LRUStore.Get", s.name, key)

	value, ok := s.cache.Get(key)
	endSpan(span, ok)

	return value, ok
}

// Set inserts or replaces a value, evicting the least recently used entry
// when the store is full.
func (s *LRUStore[V]) Set(ctx context.Context, key string, value V) {
	span := startSpan(ctx, "LRUStore.Set", s.name, key)
	defer span.End()

	s.cache.Add(key, value)
}

// Len returns the number of entries.
func (s *LRUStore[V]) Len() int {
	return s.cache.Len()
}

func (s *LRUStore[V]) onEvict(key string, _ V) {
	s.logger.Debug("lru store evicted", zap.String("cache", s.name), zap.String("key", key))
}
