// Package middleware provides the HTTP middleware chain (tracing, metrics,
// request logging) and the request-scoped identifiers shared with the
// pub/sub bindings.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/observability"
)

type contextKey string

const (
	CorrelationIDKey contextKey = "correlation-id"
	RequestIDKey     contextKey = "request-id"

	CorrelationIDHeader = "X-Correlation-ID"
	RequestIDHeader     = "X-Request-ID"
)

// ObservabilityMiddleware instruments HTTP handlers.
type ObservabilityMiddleware struct {
	telemetry *observability.Telemetry
	logger    *zap.Logger
}

// NewObservabilityMiddleware creates the middleware set.
func NewObservabilityMiddleware(telemetry *observability.Telemetry, logger *zap.Logger) *ObservabilityMiddleware {
	return &ObservabilityMiddleware{
		telemetry: telemetry,
		logger:    logger,
	}
}

// TracingMiddleware starts a server span, continues any inbound trace, and
// assigns correlation and request IDs.
func (m *ObservabilityMiddleware) TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.telemetry.Tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.String()),
				attribute.String("http.host", r.Host),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.String("http.client_ip", GetClientIP(r)),
			),
		)
		defer span.End()

		ctx = WithCorrelationID(ctx, r.Header.Get(CorrelationIDHeader))
		ctx = WithRequestID(ctx)

		correlationID := GetCorrelationID(ctx)
		requestID := GetRequestID(ctx)

		span.SetAttributes(
			attribute.String("correlation_id", correlationID),
			attribute.String("request_id", requestID),
		)

		w.Header().Set(CorrelationIDHeader, correlationID)
		w.Header().Set(RequestIDHeader, requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", wrapped.statusCode))

		if wrapped.statusCode >= 500 {
			span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

// MetricsMiddleware records request counts and durations by route template.
func (m *ObservabilityMiddleware) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := r.URL.Path

		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}

		m.telemetry.RecordRequest(r.Context(), r.Method, path, wrapped.statusCode, time.Since(start))
	})
}

// LoggingMiddleware logs each request with its identifiers.
func (m *ObservabilityMiddleware) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := m.logger.With(
			zap.String("correlation_id", GetCorrelationID(r.Context())),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client_ip", GetClientIP(r)),
			zap.String("user_agent", r.UserAgent()),
		)

		logger.Debug("request started")

		wrapped := &responseWriterWithSize{
			responseWriter: responseWriter{ResponseWriter: w, statusCode: http.StatusOK},
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		logger.Info("request completed",
			zap.Int("status_code", wrapped.statusCode),
			zap.Int64("bytes_written", wrapped.bytesWritten),
			zap.Duration("duration", duration),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type responseWriterWithSize struct {
	responseWriter
	bytesWritten int64
}

func (rw *responseWriterWithSize) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)

	return n, err
}

// WithCorrelationID stores id in ctx, generating a new one when id is
// empty. Pub/sub bindings call this with the inbound message's correlation
// header.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}

	return context.WithValue(ctx, CorrelationIDKey, id)
}

// WithRequestID stores a fresh request ID in ctx.
func WithRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, RequestIDKey, uuid.New().String())
}

// GetCorrelationID returns the correlation ID in ctx, or "".
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}

	return ""
}

// GetRequestID returns the request ID in ctx, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}

	return ""
}
