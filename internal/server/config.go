// Package server exposes crowd predictions over HTTP.
package server

import (
	"fmt"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
)

// Defaults.
const (
	DefaultAddr            = ":5000"
	DefaultCacheTTL        = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultHistoryLimit    = 50
)

// Config holds HTTP server settings.
type Config struct {
	// ModelPath is where updated mappings are persisted with the model.
	ModelPath       string
	Addr            string
	CORSOrigins     []string
	RefreshInterval time.Duration
	ShutdownTimeout time.Duration
	HistoryLimit    int
}

// DefaultConfig returns a Config listening on :5000 that allows any origin.
func DefaultConfig() Config {
	return Config{
		Addr:            DefaultAddr,
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: DefaultShutdownTimeout,
		HistoryLimit:    DefaultHistoryLimit,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: server address is required", common.ErrMissingConfig)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("%w: refresh interval cannot be negative", common.ErrInvalidConfig)
	}
	if c.RefreshInterval > 0 && c.RefreshInterval < time.Second {
		return fmt.Errorf("%w: refresh interval must be at least 1s", common.ErrInvalidConfig)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history limit cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// CacheConfig holds Redis settings for the prediction cache. An empty Addr
// disables caching.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis address is configured.
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}
