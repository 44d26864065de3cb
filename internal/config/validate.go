package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/thomhuang/printnearby/internal/logging"
	"github.com/thomhuang/printnearby/internal/store"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if c.Gazetteer.Path == "" {
		return fmt.Errorf("gazetteer.path is required")
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 || s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if s.RateLimitRequests < 0 {
		return fmt.Errorf("server.rate_limit_requests must not be negative, got %d", s.RateLimitRequests)
	}
	if s.RateLimitRequests > 0 && s.RateLimitWindow <= 0 {
		return fmt.Errorf("server.rate_limit_window must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateStore() error {
	// the cap mirrors the datastore; it can be lowered, never raised
	if c.Store.MaxInFilter < 1 || c.Store.MaxInFilter > store.MaxInFilter {
		return fmt.Errorf("store.max_in_filter must be between 1 and %d, got %d", store.MaxInFilter, c.Store.MaxInFilter)
	}
	if c.Store.BreakerFailures == 0 {
		return fmt.Errorf("store.breaker_failures must be at least 1")
	}
	if c.Store.BreakerTimeout <= 0 {
		return fmt.Errorf("store.breaker_timeout must be positive")
	}
	return nil
}

func (c *Config) validateSearch() error {
	r := c.Search.MaxRadiusMiles
	if !(r > 0) || math.IsInf(r, 0) {
		return fmt.Errorf("search.max_radius_miles must be a positive number, got %v", r)
	}
	if c.Search.Parallelism < 1 {
		return fmt.Errorf("search.parallelism must be at least 1, got %d", c.Search.Parallelism)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
}
