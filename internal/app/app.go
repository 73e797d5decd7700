// Package app provides application-level coordination and dependency injection.
// It builds the upstream providers and the resolution pipeline, serves it over
// HTTP and the pub/sub bindings, and manages their lifecycles.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sean-rowe/weather-resolver/internal/adapters/primary/pubsub"
	"github.com/sean-rowe/weather-resolver/internal/adapters/secondary/geocoder"
	"github.com/sean-rowe/weather-resolver/internal/adapters/secondary/metno"
	"github.com/sean-rowe/weather-resolver/internal/adapters/secondary/metoffice"
	"github.com/sean-rowe/weather-resolver/internal/adapters/secondary/timezone"
	"github.com/sean-rowe/weather-resolver/internal/config"
	"github.com/sean-rowe/weather-resolver/internal/core/ports"
	"github.com/sean-rowe/weather-resolver/internal/observability"
)

// Server represents the HTTP server instance.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// binding is an asynchronous transport with its own lifecycle.
type binding interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// App manages the application lifecycle and dependencies.
type App struct {
	cfg       *config.Config
	server    *Server
	logger    *zap.Logger
	telemetry *observability.Telemetry
	pipeline  *Pipeline
	redis     *redis.Client
	bindings  []binding
}

// New creates a new application instance.
//
// Parameters:
//   - cfg: Validated configuration
//   - logger: Process logger
//
// Returns:
//   - *App: Configured application instance
func New(cfg *config.Config, logger *zap.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Start initializes and starts all application components.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Pipeline construction error
func (a *App) Start(ctx context.Context) error {
	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
		a.telemetry = nil
	}

	pipeline, err := NewPipeline(ctx, a.cfg, a.initProviders(), a.telemetry, nil, a.logger)
	if err != nil {
		return err
	}

	a.pipeline = pipeline

	a.server = &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
			Handler:      NewRouter(pipeline, a.cfg.Observability.ServiceName, a.telemetry, a.logger),
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
			IdleTimeout:  a.cfg.Server.IdleTimeout,
		},
		logger: a.logger,
	}

	go func() {
		a.logger.Info("starting HTTP server",
			zap.String("port", a.cfg.Server.Port),
			zap.String("environment", a.cfg.Server.Environment))

		if err := a.server.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start server", zap.Error(err))
			}
		}
	}()

	a.initBindings(ctx)

	return nil
}

// Stop gracefully shuts down all application components.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	for _, b := range a.bindings {
		if err := b.Stop(shutdownCtx); err != nil {
			a.logger.Error("failed to stop binding", zap.Error(err))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		telemetryCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(telemetryCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	// Sync can fail on some platforms, ignore the error
	_ = a.logger.Sync()
}

// WaitForShutdown blocks until the process receives a shutdown signal.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

// initTelemetry initializes OpenTelemetry providers.
//
// Parameters:
//   - ctx: Context for initialization
//
// Returns:
//   - error: Telemetry initialization error
func (a *App) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initProviders creates the upstream clients. Without a Met Office key,
// UK locations are forecast by met.no.
//
// Returns:
//   - Providers: Unguarded upstream providers
func (a *App) initProviders() Providers {
	ext := a.cfg.External

	httpClient := &http.Client{
		Timeout: ext.HTTPTimeout,
	}

	geo := geocoder.NewClient(ext.GeocoderBaseURL, ext.GeocoderAPIKey, httpClient, ext.UserAgent, a.logger)
	worldwide := metno.NewClient(ext.MetNoBaseURL, httpClient, ext.UserAgent, a.logger)

	var uk ports.WeatherProvider = worldwide

	if ext.MetOfficeAPIKey != "" {
		uk = metoffice.NewClient(ext.MetOfficeBaseURL, ext.MetOfficeAPIKey, httpClient, ext.UserAgent, a.logger)
	} else {
		a.logger.Warn("no Met Office API key configured, UK forecasts will come from met.no")
	}

	providers := Providers{
		Geocoder:  geo,
		Reverse:   geo,
		UK:        uk,
		Worldwide: worldwide,
	}

	resolver, err := timezone.NewResolver()
	if err != nil {
		a.logger.Warn("failed to load timezone data, responses will carry a null timezone", zap.Error(err))
	} else {
		providers.Timezones = resolver
	}

	return providers
}

// initBindings starts the enabled pub/sub bindings. A binding that cannot
// start is logged and skipped; HTTP keeps serving.
//
// Parameters:
//   - ctx: Context for connection checks and subscription
func (a *App) initBindings(ctx context.Context) {
	var metrics ports.ResolutionMetrics
	if a.telemetry != nil {
		metrics = a.telemetry
	}

	if a.cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:        a.cfg.Redis.Addr,
			Password:    a.cfg.Redis.Password,
			DB:          a.cfg.Redis.DB,
			DialTimeout: a.cfg.Redis.DialTimeout,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			a.logger.Warn("Redis connection failed, continuing without the redis binding", zap.Error(err))
			_ = client.Close()
		} else {
			a.redis = client
			a.startBinding(ctx, "redis", pubsub.NewRedisBinding(client, a.cfg.Redis.ChannelPrefix, a.pipeline.Dispatcher, metrics, a.logger))
		}
	}

	if a.cfg.Kafka.Enabled {
		a.startBinding(ctx, "kafka", pubsub.NewKafkaBinding(pubsub.KafkaConfig{
			Brokers:       a.cfg.Kafka.Brokers,
			RequestTopic:  a.cfg.Kafka.RequestTopic,
			ResponseTopic: a.cfg.Kafka.ResponseTopic,
			GroupID:       a.cfg.Kafka.GroupID,
		}, a.pipeline.Dispatcher, metrics, a.logger))
	}
}

func (a *App) startBinding(ctx context.Context, name string, b binding) {
	if err := b.Start(ctx); err != nil {
		a.logger.Warn("failed to start binding, continuing without it", zap.String("binding", name), zap.Error(err))
		return
	}

	a.bindings = append(a.bindings, b)
}
