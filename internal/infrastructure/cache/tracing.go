// Package cache provides the concurrency-safe stores behind the resolution
// caches: an unbounded map, a bounded LRU, and a bounded LRU whose entries
// expire a fixed time after insertion.
package cache

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func startSpan(ctx context.Context, operation, name, key string) trace.Span {
	_, span := otel.Tracer("cache").Start(ctx, operation)

	span.SetAttributes(
		attribute.String("cache.name", name),
		attribute.String("cache.key", key),
	)

	return span
}

func endSpan(span trace.Span, hit bool) {
	span.SetAttributes(attribute.Bool("cache.hit", hit))
	span.End()
}
