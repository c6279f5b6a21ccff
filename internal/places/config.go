// Package places provides a client for the Google Places (New) search API.
package places

import (
	"fmt"
	"time"

	"github.com/Veraticus/hawker-crowd/internal/common"
)

// Search limits imposed by the provider and by this client.
const (
	MaxTextSearchResults = 2000
	PageSize             = 20
	DefaultRadius        = 500.0
	defaultMaxRequests   = 100
	defaultTimeout       = 30 * time.Second
)

// Default field masks.
const (
	TextSearchFieldMask   = "places.id,places.formattedAddress,places.displayName,places.location,nextPageToken"
	NearbySearchFieldMask = "places.id,places.formattedAddress,places.displayName,places.location,places.types"
	DetailsFieldMask      = "id,formattedAddress,displayName,location,types"
)

// Config holds Places client settings.
type Config struct {
	APIKey string
	// Endpoint overrides the service root, mainly for tests.
	Endpoint    string
	Timeout     time.Duration
	MaxRequests int
}

// DefaultConfig returns a Config with production defaults and no key.
func DefaultConfig() Config {
	return Config{
		Timeout:     defaultTimeout,
		MaxRequests: defaultMaxRequests,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: places API key is required", common.ErrMissingConfig)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: places request cap must be positive", common.ErrInvalidConfig)
	}
	return nil
}
