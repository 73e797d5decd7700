// Package circuitbreaker isolates the resolution pipeline from failing
// upstream providers. It wraps sony/gobreaker with tracing, structured
// logging and a registry that reports per-provider statistics.
package circuitbreaker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Breaker guards calls to one provider.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
	name    string
}

// Config defines when a breaker opens and how it recovers.
type Config struct {
	Name string

	// MaxRequests is the number of trial calls allowed while half-open
	MaxRequests uint32

	// Interval is the cyclic period after which closed-state counts reset
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open
	Timeout time.Duration

	ReadyToTrip func(counts gobreaker.Counts) bool

	// IsSuccessful classifies errors that must not count as failures, such
	// as a provider answering "no match"
	IsSuccessful func(err error) bool

	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// New creates a breaker. When cfg.ReadyToTrip is nil the breaker opens once
// at least three calls have been made and half of them failed.
//
// Parameters:
//   - cfg: Thresholds and callbacks
//   - logger: Zap logger for state changes and failures
//
// Returns:
//   - *Breaker: Closed breaker
func New(cfg Config, logger *zap.Logger) *Breaker {
	settings := gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		ReadyToTrip:  cfg.ReadyToTrip,
		IsSuccessful: cfg.IsSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))

			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}

	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		}
	}

	return &Breaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		name:    cfg.Name,
	}
}

// Execute runs fn unless the breaker is open.
//
// Parameters:
//   - ctx: Context for tracing
//   - operation: Operation name for spans and logs
//   - fn: Provider call to protect
//
// Returns:
//   - error: fn's error, or gobreaker.ErrOpenState / gobreaker.ErrTooManyRequests
func (b *Breaker) Execute(ctx context.Context, operation string, fn func() error) error {
	_, span := otel.Tracer("circuit-breaker").Start(ctx, "CircuitBreaker.Execute")
	defer span.End()

	span.SetAttributes(
		attribute.String("circuit_breaker.name", b.name),
		attribute.String("circuit_breaker.operation", operation),
		attribute.String("circuit_breaker.state", b.breaker.State().String()),
	)

	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		b.logger.Debug("guarded call failed",
			zap.String("provider", b.name),
			zap.String("operation", operation),
			zap.String("state", b.breaker.State().String()),
			zap.Error(err))
	}

	return err
}

// Name returns the guarded provider's name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the counts for the current interval.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}

// Stats is a point-in-time snapshot of one breaker.
type Stats struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
}

// Registry hands out one breaker per provider and reports on all of them.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	defaults Config
	logger   *zap.Logger
}

// NewRegistry creates a registry whose breakers share defaults.
func NewRegistry(defaults Config, logger *zap.Logger) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
		logger:   logger,
	}
}

// Get returns the breaker for name, creating it from the defaults on first
// use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, exists := r.breakers[name]; exists {
		return breaker
	}

	cfg := r.defaults
	cfg.Name = name

	breaker := New(cfg, r.logger)
	r.breakers[name] = breaker

	return breaker
}

// Stats returns a snapshot of every breaker, ordered by name.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	breakers := make([]*Breaker, 0, len(r.breakers))

	for _, breaker := range r.breakers {
		breakers = append(breakers, breaker)
	}
	r.mu.Unlock()

	sort.Slice(breakers, func(i, j int) bool { return breakers[i].name < breakers[j].name })

	stats := make([]Stats, 0, len(breakers))

	for _, breaker := range breakers {
		counts := breaker.Counts()

		stats = append(stats, Stats{
			Name:                 breaker.name,
			State:                breaker.State().String(),
			Requests:             counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
		})
	}

	return stats
}
