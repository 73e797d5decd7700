// Package observability sets up OpenTelemetry tracing and metrics for the
// resolver and records the service's request, cache and provider metrics.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Outcome label for successful resolutions; failures use the error kind.
const OutcomeOK = "ok"

// Telemetry holds the providers and instruments used across the service.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	logger         *zap.Logger

	// HTTP layer
	RequestCounter  metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ErrorCounter    metric.Int64Counter

	// Resolution across every transport
	ResolutionCounter  metric.Int64Counter
	ResolutionDuration metric.Float64Histogram

	// Caches, labelled by cache name
	CacheHitCounter  metric.Int64Counter
	CacheMissCounter metric.Int64Counter

	// Upstream providers
	ProviderCallCounter  metric.Int64Counter
	ProviderCallDuration metric.Float64Histogram
	BreakerStateCounter  metric.Int64Counter
}

// Config configures exporters and resource attributes.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPEndpoint is the gRPC collector address; empty disables trace export
	OTLPEndpoint string
	SampleRate   float64
}

// InitTelemetry installs global tracer and meter providers. Metrics are
// exported through the Prometheus registry served on /metrics.
//
// Parameters:
//   - ctx: Context for exporter setup
//   - cfg: Exporter and resource configuration
//   - logger: Zap logger
//
// Returns:
//   - *Telemetry: Providers and instruments
//   - error: If a provider or instrument cannot be created
func InitTelemetry(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider, err := initTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracer provider: %w", err)
	}

	meterProvider, err := initMeterProvider(res)
	if err != nil {
		return nil, fmt.Errorf("failed to init meter provider: %w", err)
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	telemetry, err := NewTelemetry(tracerProvider.Tracer(cfg.ServiceName), meterProvider.Meter(cfg.ServiceName), logger)
	if err != nil {
		return nil, err
	}

	telemetry.TracerProvider = tracerProvider
	telemetry.MeterProvider = meterProvider

	return telemetry, nil
}

// NewTelemetry creates the service instruments on an existing meter. Tests
// pass no-op or manual-reader meters here.
func NewTelemetry(tracer trace.Tracer, meter metric.Meter, logger *zap.Logger) (*Telemetry, error) {
	t := &Telemetry{Tracer: tracer, Meter: meter, logger: logger}

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&t.RequestCounter, "http_requests_total", "Total number of HTTP requests"},
		{&t.ErrorCounter, "errors_total", "Total number of HTTP error responses"},
		{&t.ResolutionCounter, "resolutions_total", "Resolution requests by transport and outcome"},
		{&t.CacheHitCounter, "cache_hits_total", "Total number of cache hits"},
		{&t.CacheMissCounter, "cache_misses_total", "Total number of cache misses"},
		{&t.ProviderCallCounter, "provider_calls_total", "Upstream provider calls by provider and outcome"},
		{&t.BreakerStateCounter, "circuit_breaker_transitions_total", "Circuit breaker state transitions"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1"))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", c.name, err)
		}

		*c.target = counter
	}

	histograms := []struct {
		target      *metric.Float64Histogram
		name        string
		description string
	}{
		{&t.RequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds"},
		{&t.ResolutionDuration, "resolution_duration_seconds", "End-to-end resolution duration in seconds"},
		{&t.ProviderCallDuration, "provider_call_duration_seconds", "Upstream provider call duration in seconds"},
	}

	for _, h := range histograms {
		histogram, err := meter.Float64Histogram(h.name, metric.WithDescription(h.description), metric.WithUnit("s"))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", h.name, err)
		}

		*h.target = histogram
	}

	return t, nil
}

func initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	options := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	}

	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptrace.New(
			ctx,
			otlptracegrpc.NewClient(
				otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
				otlptracegrpc.WithInsecure(),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}

		options = append(options, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(options...), nil
}

func initMeterProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	), nil
}

// RecordRequest records one HTTP request.
func (t *Telemetry) RecordRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status_code", statusCode),
	)

	t.RequestCounter.Add(ctx, 1, attrs)
	t.RequestDuration.Record(ctx, duration.Seconds(), attrs)

	if statusCode >= 400 {
		t.ErrorCounter.Add(ctx, 1, attrs)
	}
}

// RecordResolution records one dispatched request from any transport.
// outcome is OutcomeOK or the envelope's error kind.
func (t *Telemetry) RecordResolution(ctx context.Context, transport, outcome string, duration time.Duration) {
	t.ResolutionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("outcome", outcome),
	))
	t.ResolutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("transport", transport),
	))
}

// RecordCacheHit implements ports.CacheMetrics.
func (t *Telemetry) RecordCacheHit(ctx context.Context, cache string) {
	t.CacheHitCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cache)))
}

// RecordCacheMiss implements ports.CacheMetrics.
func (t *Telemetry) RecordCacheMiss(ctx context.Context, cache string) {
	t.CacheMissCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("cache", cache)))
}

// RecordProviderCall records one upstream call.
func (t *Telemetry) RecordProviderCall(ctx context.Context, provider, operation string, duration time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = "error"
	}

	t.ProviderCallCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
	t.ProviderCallDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))
}

// RecordBreakerTransition records a circuit breaker state change.
func (t *Telemetry) RecordBreakerTransition(provider, to string) {
	t.BreakerStateCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("to", to),
	))
}

// Shutdown flushes and stops the providers created by InitTelemetry.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
	}

	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
	}

	return nil
}
