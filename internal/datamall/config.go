// Package datamall provides a client for the LTA DataMall transit API.
package datamall

import (
	"fmt"
	"net/url"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
)

// DefaultBaseURL is the production DataMall service root.
const DefaultBaseURL = "https://datamall2.mytransport.sg/ltaodataservice/"

const (
	defaultMaxRequests = 200
	defaultTimeout     = 30 * time.Second
)

// Config holds DataMall client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	MaxRequests int
}

// DefaultConfig returns a Config with production defaults and no key.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     defaultTimeout,
		MaxRequests: defaultMaxRequests,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: datamall API key is required", common.ErrMissingConfig)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: datamall base URL is required", common.ErrMissingConfig)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: datamall base URL: %w", common.ErrInvalidConfig, err)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: datamall request cap must be positive", common.ErrInvalidConfig)
	}
	return nil
}
