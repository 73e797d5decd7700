package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type ttlEntry[V any] struct {
	value      V
	insertedAt time.Time
}

// TTLStore is a fixed-capacity LRU store whose entries expire a fixed
// duration after insertion, regardless of access. An expired entry is
// removed on lookup and reported as a miss.
type TTLStore[V any] struct {
	name   string
	ttl    time.Duration
	clock  clockwork.Clock
	logger *zap.Logger

	// mu guards lru
	mu  sync.Mutex
	lru *simplelru.LRU[string, ttlEntry[V]]
}

// NewTTLStore creates a bounded, expiring store.
//
// Parameters:
//   - name: Cache name used in spans and logs
//   - capacity: Maximum number of entries, must be positive
//   - ttl: Lifetime of an entry measured from insertion
//   - clock: Time source; clockwork.NewRealClock() outside tests
//   - logger: Zap logger for cache operations
//
// Returns:
//   - *TTLStore[V]: Empty store
//   - error: If capacity or ttl is not positive
func NewTTLStore[V any](name string, capacity int, ttl time.Duration, clock clockwork.Clock, logger *zap.Logger) (*TTLStore[V], error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("creating %s TTL store: ttl must be positive, got %s", name, ttl)
	}

	cache, err := simplelru.NewLRU[string, ttlEntry[V]](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s TTL store: %w", name, err)
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &TTLStore[V]{
		name:   name,
		ttl:    ttl,
		clock:  clock,
		logger: logger,
		lru:    cache,
	}, nil
}

// Get retrieves a live value. Entries at or past their TTL are dropped.
func (s *TTLStore[V]) Get(ctx context.Context, key string) (V, bool) {
	span := startSpan(ctx, "TTLStore.Get", s.name, key)

	var zero V

	s.mu.Lock()
	entry, ok := s.lru.Get(key)

	if ok && s.clock.Since(entry.insertedAt) >= s.ttl {
		s.lru.Remove(key)
		s.mu.Unlock()

		s.logger.Debug("ttl store entry expired", zap.String("cache", s.name), zap.String("key", key))
		endSpan(span, false)

		return zero, false
	}
	s.mu.Unlock()

	endSpan(span, ok)

	if !ok {
		return zero, false
	}

	return entry.value, true
}

// Set inserts or replaces a value and restarts its lifetime.
func (s *TTLStore[V]) Set(ctx context.Context, key string, value V) {
	span := startSpan(ctx, "TTLStore.Set", s.name, key)
	defer span.End()

	s.mu.Lock()
	s.lru.Add(key, ttlEntry[V]{value: value, insertedAt: s.clock.Now()})
	s.mu.Unlock()
}

// Len returns the number of entries held, including expired entries not
// yet looked up.
func (s *TTLStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lru.Len()
}
