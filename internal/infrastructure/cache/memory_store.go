package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MemoryStore is an unbounded in-memory store backed by go-cache. Entries
// never expire and are never evicted.
type MemoryStore[V any] struct {
	name   string
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewMemoryStore creates an unbounded store.
//
// Parameters:
//   - name: Cache name used in spans and logs
//   - logger: Zap logger for cache operations
//
// Returns:
//   - *MemoryStore[V]: Empty store
func NewMemoryStore[V any](name string, logger *zap.Logger) *MemoryStore[V] {
	return &MemoryStore[V]{
		name:   name,
		cache:  gocache.New(gocache.NoExpiration, 0),
		logger: logger,
	}
}

// Get retrieves a value by key.
func (m *MemoryStore[V]) Get(ctx context.Context, key string) (V, bool) {
	span := startSpan(ctx, "MemoryStore.Get", m.name, key)

	var zero V

	item, found := m.cache.Get(key)
	if !found {
		endSpan(span, false)
		return zero, false
	}

	value, ok := item.(V)
	endSpan(span, ok)

	return value, ok
}

// Set stores a value under key, replacing any previous value.
func (m *MemoryStore[V]) Set(ctx context.Context, key string, value V) {
	span := startSpan(ctx, "MemoryStore.Set", m.name, key)
	defer span.End()

	m.cache.Set(key, value, gocache.NoExpiration)
	m.logger.Debug("memory store set", zap.String("cache", m.name), zap.String("key", key))
}

// Len returns the number of entries.
func (m *MemoryStore[V]) Len() int {
	return m.cache.ItemCount()
}
