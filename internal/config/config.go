// Package config loads printnearby configuration.
//
// Sources are layered with koanf: built-in defaults, then an optional YAML
// file, then environment variables. The result is validated before use.
package config

import (
	"time"

	"github.com/thomhuang/printnearby/internal/gazetteer"
	"github.com/thomhuang/printnearby/internal/logging"
	"github.com/thomhuang/printnearby/internal/store"
)

// Config is the complete process configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Gazetteer GazetteerConfig `koanf:"gazetteer"`
	Store     StoreConfig     `koanf:"store"`
	Search    SearchConfig    `koanf:"search"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimitRequests per RateLimitWindow per client IP. Zero disables limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// GazetteerConfig locates the ZIP centroid dataset.
type GazetteerConfig struct {
	Path string `koanf:"path"`

	// used by `dataset build`
	GeonamesURL   string `koanf:"geonames_url"`
	GeonamesCache string `koanf:"geonames_cache"`
}

// StoreConfig selects and protects the provider store.
type StoreConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxInFilter     int           `koanf:"max_in_filter"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// SearchConfig bounds nearby searches served over HTTP.
type SearchConfig struct {
	MaxRadiusMiles float64 `koanf:"max_radius_miles"`
	Parallelism    int     `koanf:"parallelism"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Logging converts the section to the logging package's Config.
func (l LoggingConfig) Logging() logging.Config {
	return logging.Config{Level: l.Level, Format: l.Format, Caller: l.Caller}
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Gazetteer: GazetteerConfig{
			Path:          "data/zips.json.gz",
			GeonamesURL:   gazetteer.GeonamesURL,
			GeonamesCache: "",
		},
		Store: StoreConfig{
			DSN:             "", // sqlite at data/printnearby.db
			MaxInFilter:     store.MaxInFilter,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Search: SearchConfig{
			MaxRadiusMiles: 500,
			Parallelism:    4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
