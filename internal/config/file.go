package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig mirrors the TOML layout. Zero values leave the current
// setting untouched.
type fileConfig struct {
	UserAgent string `toml:"user_agent"`

	Server struct {
		Port        string `toml:"port"`
		Environment string `toml:"environment"`
	} `toml:"server"`

	Cache struct {
		ReverseGeocodeSize int    `toml:"reverse_geocode_size"`
		ForecastSize       int    `toml:"forecast_size"`
		ForecastTTL        string `toml:"forecast_ttl"`
	} `toml:"cache"`

	Geocoder struct {
		BaseURL string `toml:"base_url"`
		APIKey  string `toml:"api_key"`
	} `toml:"geocoder"`

	MetNo struct {
		BaseURL string `toml:"base_url"`
	} `toml:"metno"`

	MetOffice struct {
		BaseURL string `toml:"base_url"`
		APIKey  string `toml:"api_key"`
	} `toml:"metoffice"`

	Redis struct {
		Enabled       *bool  `toml:"enabled"`
		Addr          string `toml:"addr"`
		ChannelPrefix string `toml:"channel_prefix"`
	} `toml:"redis"`

	Kafka struct {
		Enabled       *bool    `toml:"enabled"`
		Brokers       []string `toml:"brokers"`
		RequestTopic  string   `toml:"request_topic"`
		ResponseTopic string   `toml:"response_topic"`
		GroupID       string   `toml:"group_id"`
	} `toml:"kafka"`

	Locations []struct {
		Name        string  `toml:"name"`
		Lat         float64 `toml:"lat"`
		Lon         float64 `toml:"lon"`
		DisplayName string  `toml:"display_name"`
		InUK        bool    `toml:"in_uk"`
	} `toml:"locations"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	return c.applyTOML(data)
}

func (c *Config) applyTOML(data []byte) error {
	var file fileConfig

	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	setString(&c.External.UserAgent, file.UserAgent)
	setString(&c.Server.Port, file.Server.Port)
	setString(&c.Server.Environment, file.Server.Environment)

	setInt(&c.Cache.ReverseGeocodeSize, file.Cache.ReverseGeocodeSize)
	setInt(&c.Cache.ForecastSize, file.Cache.ForecastSize)

	if file.Cache.ForecastTTL != "" {
		ttl, err := time.ParseDuration(file.Cache.ForecastTTL)
		if err != nil {
			return fmt.Errorf("parsing cache.forecast_ttl: %w", err)
		}

		c.Cache.ForecastTTL = ttl
	}

	setString(&c.External.GeocoderBaseURL, file.Geocoder.BaseURL)
	setString(&c.External.GeocoderAPIKey, file.Geocoder.APIKey)
	setString(&c.External.MetNoBaseURL, file.MetNo.BaseURL)
	setString(&c.External.MetOfficeBaseURL, file.MetOffice.BaseURL)
	setString(&c.External.MetOfficeAPIKey, file.MetOffice.APIKey)

	if file.Redis.Enabled != nil {
		c.Redis.Enabled = *file.Redis.Enabled
	}

	setString(&c.Redis.Addr, file.Redis.Addr)
	setString(&c.Redis.ChannelPrefix, file.Redis.ChannelPrefix)

	if file.Kafka.Enabled != nil {
		c.Kafka.Enabled = *file.Kafka.Enabled
	}

	if len(file.Kafka.Brokers) > 0 {
		c.Kafka.Brokers = file.Kafka.Brokers
	}

	setString(&c.Kafka.RequestTopic, file.Kafka.RequestTopic)
	setString(&c.Kafka.ResponseTopic, file.Kafka.ResponseTopic)
	setString(&c.Kafka.GroupID, file.Kafka.GroupID)

	for _, location := range file.Locations {
		c.Locations = append(c.Locations, LocationSeed{
			Name:        location.Name,
			Latitude:    location.Lat,
			Longitude:   location.Lon,
			DisplayName: location.DisplayName,
			InUK:        location.InUK,
		})
	}

	return nil
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func setInt(target *int, value int) {
	if value != 0 {
		*target = value
	}
}
