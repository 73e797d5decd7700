// Package config provides centralized configuration for the resolver.
// Values start from defaults, are overlaid by an optional TOML file, and
// finally by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sean-rowe/weather-resolver/internal/version"
)

// Config holds all configuration settings for the resolver.
type Config struct {
	Server        ServerConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
	External      ExternalConfig
	Cache         CacheConfig
	Breaker       BreakerConfig

	// Locations pre-populate the geocode cache at startup
	Locations []LocationSeed
}

// ServerConfig contains HTTP server settings and timeouts.
type ServerConfig struct {
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig contains settings for the Redis pub/sub binding. Requests
// arrive on "<ChannelPrefix>:request:<client>" and replies go to
// "<ChannelPrefix>:response:<client>".
type RedisConfig struct {
	Enabled       bool
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
	DialTimeout   time.Duration
}

// KafkaConfig contains settings for the Kafka binding.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	RequestTopic  string
	ResponseTopic string
	GroupID       string
}

// ObservabilityConfig contains settings for distributed tracing and metrics.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
	LogLevel       string
}

// ExternalConfig contains the upstream provider endpoints and credentials.
type ExternalConfig struct {
	GeocoderBaseURL  string
	GeocoderAPIKey   string
	MetNoBaseURL     string
	MetOfficeBaseURL string

	// MetOfficeAPIKey enables the UK provider; without it UK locations are
	// served by met.no
	MetOfficeAPIKey string

	UserAgent   string
	HTTPTimeout time.Duration
}

// CacheConfig sizes the bounded caches.
type CacheConfig struct {
	ReverseGeocodeSize int
	ForecastSize       int
	ForecastTTL        time.Duration
}

// BreakerConfig tunes the per-provider circuit breakers.
type BreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// LocationSeed is a named location known ahead of time.
type LocationSeed struct {
	Name        string  `validate:"required"`
	Latitude    float64 `validate:"latitude"`
	Longitude   float64 `validate:"longitude"`
	DisplayName string
	InUK        bool
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Environment:     "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			ChannelPrefix: "weather",
			DialTimeout:   5 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			RequestTopic:  "weather.requests",
			ResponseTopic: "weather.responses",
			GroupID:       "weather-resolver",
		},
		Observability: ObservabilityConfig{
			ServiceName:    "weather-resolver",
			ServiceVersion: version.Version,
			Environment:    "development",
			OTLPEndpoint:   "localhost:4317",
			SampleRate:     0.1,
			LogLevel:       "info",
		},
		External: ExternalConfig{
			GeocoderBaseURL:  "https://geocode.maps.co",
			MetNoBaseURL:     "https://api.met.no/weatherapi/locationforecast/2.0",
			MetOfficeBaseURL: "https://data.hub.api.metoffice.gov.uk/sitespecific/v0",
			UserAgent:        version.UserAgent("weather-resolver"),
			HTTPTimeout:      10 * time.Second,
		},
		Cache: CacheConfig{
			ReverseGeocodeSize: 1000,
			ForecastSize:       100,
			ForecastTTL:        10 * time.Minute,
		},
		Breaker: BreakerConfig{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (or
// $CONFIG_FILE when path is empty) and the environment, then validates it.
//
// Parameters:
//   - path: Optional TOML file path
//
// Returns:
//   - *Config: Validated configuration
//   - error: File, parse or validation errors
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Environment = getEnv("ENVIRONMENT", c.Server.Environment)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.ChannelPrefix = getEnv("REDIS_CHANNEL_PREFIX", c.Redis.ChannelPrefix)

	c.Kafka.Enabled = getEnvAsBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = getEnvAsSlice("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.RequestTopic = getEnv("KAFKA_REQUEST_TOPIC", c.Kafka.RequestTopic)
	c.Kafka.ResponseTopic = getEnv("KAFKA_RESPONSE_TOPIC", c.Kafka.ResponseTopic)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	c.Observability.ServiceVersion = getEnv("VERSION", c.Observability.ServiceVersion)
	c.Observability.Environment = getEnv("ENVIRONMENT", c.Observability.Environment)
	c.Observability.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Observability.OTLPEndpoint)
	c.Observability.SampleRate = getEnvAsFloat("OTEL_SAMPLE_RATE", c.Observability.SampleRate)
	c.Observability.LogLevel = getEnv("LOG_LEVEL", c.Observability.LogLevel)

	c.External.GeocoderBaseURL = getEnv("GEOCODER_BASE_URL", c.External.GeocoderBaseURL)
	c.External.GeocoderAPIKey = getEnv("GEOCODER_API_KEY", c.External.GeocoderAPIKey)
	c.External.MetNoBaseURL = getEnv("METNO_BASE_URL", c.External.MetNoBaseURL)
	c.External.MetOfficeBaseURL = getEnv("METOFFICE_BASE_URL", c.External.MetOfficeBaseURL)
	c.External.MetOfficeAPIKey = getEnv("METOFFICE_API_KEY", c.External.MetOfficeAPIKey)
	c.External.UserAgent = getEnv("USER_AGENT", c.External.UserAgent)
	c.External.HTTPTimeout = getEnvAsDuration("HTTP_TIMEOUT", c.External.HTTPTimeout)

	c.Cache.ReverseGeocodeSize = getEnvAsInt("REVERSE_GEOCODE_CACHE_SIZE", c.Cache.ReverseGeocodeSize)
	c.Cache.ForecastSize = getEnvAsInt("FORECAST_CACHE_SIZE", c.Cache.ForecastSize)
	c.Cache.ForecastTTL = getEnvAsDuration("FORECAST_CACHE_TTL", c.Cache.ForecastTTL)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port must be set"))
	}

	if c.Cache.ReverseGeocodeSize <= 0 {
		errs = append(errs, fmt.Errorf("reverse geocode cache size must be positive, got %d", c.Cache.ReverseGeocodeSize))
	}

	if c.Cache.ForecastSize <= 0 {
		errs = append(errs, fmt.Errorf("forecast cache size must be positive, got %d", c.Cache.ForecastSize))
	}

	if c.Cache.ForecastTTL <= 0 {
		errs = append(errs, fmt.Errorf("forecast cache ttl must be positive, got %s", c.Cache.ForecastTTL))
	}

	if strings.TrimSpace(c.External.UserAgent) == "" {
		errs = append(errs, errors.New("user agent must be set"))
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka is enabled but no brokers are configured"))
	}

	validate := validator.New()
	seen := make(map[string]bool, len(c.Locations))

	for i, seed := range c.Locations {
		if err := validate.Struct(seed); err != nil {
			errs = append(errs, fmt.Errorf("location %d (%q): %w", i, seed.Name, err))
			continue
		}

		key := strings.ToLower(strings.TrimSpace(seed.Name))
		if seen[key] {
			errs = append(errs, fmt.Errorf("location %q is defined more than once", seed.Name))
		}

		seen[key] = true
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable value with a fallback default.
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to use if variable is not set
//
// Returns:
//   - string: Environment value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a fallback default.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean with a fallback default.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}

	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}

	return defaultValue
}

// getEnvAsSlice splits a comma-separated variable, dropping empty items.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}
