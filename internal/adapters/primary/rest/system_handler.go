package rest

import (
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/infrastructure/circuitbreaker"
	"github.com/sean-rowe/weather-resolver/internal/version"
)

// Sizer reports how many entries a cache holds.
type Sizer interface {
	Len() int
}

// SystemHandler serves the operational endpoints.
type SystemHandler struct {
	service  string
	breakers *circuitbreaker.Registry
	caches   map[string]Sizer
	logger   *zap.Logger
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// CacheStats is one cache's entry in /stats.
type CacheStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// StatsResponse is the body of /stats.
type StatsResponse struct {
	Caches          []CacheStats           `json:"caches"`
	CircuitBreakers []circuitbreaker.Stats `json:"circuit_breakers"`
}

// NewSystemHandler creates the operational endpoint handler.
//
// Parameters:
//   - service: Service name reported by /health
//   - breakers: Registry of provider circuit breakers, or nil
//   - caches: Caches reported by /stats, keyed by name
//   - logger: Zap logger
//
// Returns:
//   - *SystemHandler: Configured handler instance
func NewSystemHandler(service string, breakers *circuitbreaker.Registry, caches map[string]Sizer, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		service:  service,
		breakers: breakers,
		caches:   caches,
		logger:   logger,
	}
}

// Health reports liveness.
func (h *SystemHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.service,
		Version: version.Version,
	}, h.logger)
}

// Version reports build information.
func (h *SystemHandler) Version(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, version.Get(), h.logger)
}

// Stats reports cache sizes and circuit breaker counts.
func (h *SystemHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	response := StatsResponse{
		Caches:          make([]CacheStats, 0, len(h.caches)),
		CircuitBreakers: []circuitbreaker.Stats{},
	}

	for name, cache := range h.caches {
		response.Caches = append(response.Caches, CacheStats{Name: name, Entries: cache.Len()})
	}

	sort.Slice(response.Caches, func(i, j int) bool { return response.Caches[i].Name < response.Caches[j].Name })

	if h.breakers != nil {
		response.CircuitBreakers = h.breakers.Stats()
	}

	respondWithJSON(w, http.StatusOK, response, h.logger)
}
