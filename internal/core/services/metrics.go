package services

import (
	"context"

	"github.com/sean-rowe/weather-resolver/internal/core/ports"
)

// Cache names used as metric labels.
const (
	geocodeCacheName        = "geocode"
	reverseGeocodeCacheName = "reverse_geocode"
	forecastCacheName       = "forecast"
)

type noopMetrics struct{}

func (noopMetrics) RecordCacheHit(context.Context, string)  {}
func (noopMetrics) RecordCacheMiss(context.Context, string) {}

func metricsOrNoop(m ports.CacheMetrics) ports.CacheMetrics {
	if m == nil {
		return noopMetrics{}
	}

	return m
}
