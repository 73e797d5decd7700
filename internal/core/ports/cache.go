package ports

import "context"

// Store is a concurrency-safe key/value map backing one cache. Eviction
// policy belongs to the implementation: unbounded, LRU or TTL.
type Store[V any] interface {
	// Get returns the live value for key. Expired entries are reported as
	// absent.
	Get(ctx context.Context, key string) (V, bool)

	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key string, value V)

	// Len returns the number of entries currently held.
	Len() int
}

// CacheMetrics records cache outcomes. Labels carry the cache name, never
// the key.
type CacheMetrics interface {
	RecordCacheHit(ctx context.Context, cache string)
	RecordCacheMiss(ctx context.Context, cache string)
}
