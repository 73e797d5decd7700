// Package rest implements the HTTP binding of the resolver. It translates
// query strings and JSON bodies into dispatcher requests and writes the
// resulting envelope back with a status code derived from its error kind.
package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/core/domain"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
	"github.com/sean-rowe/weather-resolver/internal/middleware"
)

// Transport labels HTTP resolutions in metrics.
const Transport = "http"

const maxBodyBytes = 64 << 10

// ResolveHandler handles resolution requests over HTTP.
type ResolveHandler struct {
	// dispatcher parses, validates and resolves requests
	dispatcher ports.Dispatcher

	// metrics records one resolution per request; may be nil
	metrics ports.ResolutionMetrics

	logger *zap.Logger
}

// NewResolveHandler creates a new HTTP handler for resolution requests.
//
// Parameters:
//   - dispatcher: Dispatcher shared with the pub/sub bindings
//   - metrics: Resolution metrics recorder, or nil
//   - logger: Zap logger for request logging and error tracking
//
// Returns:
//   - *ResolveHandler: Configured handler instance
func NewResolveHandler(dispatcher ports.Dispatcher, metrics ports.ResolutionMetrics, logger *zap.Logger) *ResolveHandler {
	return &ResolveHandler{
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// GetResolve handles GET requests carrying either a place or a coordinate.
//
// Parameters:
//   - w: HTTP response writer
//   - r: HTTP request with 'place', or 'lat' and 'lon', query parameters
//
// Response codes:
//   - 200: Success envelope (forecast may be null)
//   - 400: BAD_REQUEST envelope
//   - 404: GEOCODE_ERROR envelope
func (h *ResolveHandler) GetResolve(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	req, err := requestFromQuery(r)
	if err != nil {
		h.respond(w, r, domain.EnvelopeFromError(err), started)
		return
	}

	h.respond(w, r, h.dispatcher.Handle(r.Context(), req), started)
}

// PostResolve handles POST requests whose body is a {"place"} or
// {"lat","lon"} JSON message.
//
// Parameters:
//   - w: HTTP response writer
//   - r: HTTP request with a JSON body
//
// Response codes are the same as GetResolve.
func (h *ResolveHandler) PostResolve(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError

		message := "failed to read request body"
		if errors.As(err, &tooLarge) {
			message = "request body too large"
		}

		h.respond(w, r, domain.ErrorEnvelope(domain.BadRequest, message), started)

		return
	}

	h.respond(w, r, h.dispatcher.Dispatch(r.Context(), body), started)
}

// requestFromQuery builds a request of exactly one shape from the query
// string.
func requestFromQuery(r *http.Request) (domain.Request, error) {
	query := r.URL.Query()

	hasPlace := query.Has("place")
	hasLat := query.Has("lat")
	hasLon := query.Has("lon")

	switch {
	case hasPlace && !hasLat && !hasLon:
		return domain.Request{Place: query.Get("place")}, nil
	case !hasPlace && hasLat && hasLon:
		latitude, err := strconv.ParseFloat(query.Get("lat"), 64)
		if err != nil {
			return domain.Request{}, domain.NewBadRequestError("invalid latitude format")
		}

		longitude, err := strconv.ParseFloat(query.Get("lon"), 64)
		if err != nil {
			return domain.Request{}, domain.NewBadRequestError("invalid longitude format")
		}

		return domain.Request{Point: &domain.Coordinates{Latitude: latitude, Longitude: longitude}}, nil
	default:
		return domain.Request{}, domain.NewBadRequestError("expected either 'place' or both 'lat' and 'lon' query parameters")
	}
}

// StatusFor maps an envelope to its HTTP status code. A soft forecast
// failure still produces a success envelope and therefore 200.
func StatusFor(env domain.Envelope) int {
	switch env.ErrorKind {
	case "":
		return http.StatusOK
	case domain.BadRequest:
		return http.StatusBadRequest
	case domain.GeocodeError:
		return http.StatusNotFound
	case domain.ForecastError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *ResolveHandler) respond(w http.ResponseWriter, r *http.Request, env domain.Envelope, started time.Time) {
	if h.metrics != nil {
		h.metrics.RecordResolution(r.Context(), Transport, env.Outcome(), time.Since(started))
	}

	if env.IsError() {
		h.logger.Info("resolution failed",
			zap.String("error_kind", string(env.ErrorKind)),
			zap.String("message", env.Message),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
		)
	}

	respondWithJSON(w, StatusFor(env), env, h.logger)
}

// respondWithJSON sends a JSON response with the specified status code.
//
// Parameters:
//   - w: HTTP response writer
//   - status: HTTP status code to return
//   - payload: Data to encode as JSON response body
//   - logger: Logger for encoding failures
func respondWithJSON(w http.ResponseWriter, status int, payload interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
