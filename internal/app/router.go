package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/adapters/primary/rest"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
	"github.com/sean-rowe/weather-resolver/internal/middleware"
	"github.com/sean-rowe/weather-resolver/internal/observability"
)

// NewRouter creates the HTTP router with operational and API routes.
//
// Parameters:
//   - pipeline: Resolution pipeline shared with the pub/sub bindings
//   - serviceName: Name reported by /health
//   - telemetry: Telemetry for middleware and metrics, or nil
//   - logger: Zap logger
//
// Returns:
//   - http.Handler: Configured router with all routes and middleware
func NewRouter(pipeline *Pipeline, serviceName string, telemetry *observability.Telemetry, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()

	var metrics ports.ResolutionMetrics
	if telemetry != nil {
		metrics = telemetry
	}

	system := rest.NewSystemHandler(serviceName, pipeline.Breakers, pipeline.CacheSizes(), logger)
	resolve := rest.NewResolveHandler(pipeline.Dispatcher, metrics, logger)

	router.HandleFunc("/health", system.Health).Methods(http.MethodGet)
	router.HandleFunc("/version", system.Version).Methods(http.MethodGet)
	router.HandleFunc("/stats", system.Stats).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Apply observability middleware if telemetry is available
	if telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(telemetry, logger)
		router.Use(obsMiddleware.TracingMiddleware)
		router.Use(obsMiddleware.MetricsMiddleware)
		router.Use(obsMiddleware.LoggingMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/resolve", resolve.GetResolve).Methods(http.MethodGet)
	api.HandleFunc("/resolve", resolve.PostResolve).Methods(http.MethodPost)

	return router
}
