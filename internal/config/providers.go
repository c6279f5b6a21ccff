package config

import (
	"os"

	"github.com/Veraticus/hawker-crowd/internal/datamall"
	"github.com/Veraticus/hawker-crowd/internal/places"
	"github.com/spf13/viper"
)

// LoadPlacesConfig loads Places API configuration from Viper and environment variables.
// It follows this precedence:
// 1. Viper configuration (from config file or HAWKER_ env vars)
// 2. Direct environment variables (GOOGLE_PLACES_API_KEY)
// 3. Default values
func LoadPlacesConfig() (*places.Config, error) {
	config := places.DefaultConfig()

	// Load from Viper first
	if v := viper.GetString("places.api_key"); v != "" {
		config.APIKey = v
	}
	if v := viper.GetString("places.endpoint"); v != "" {
		config.Endpoint = v
	}
	if v := viper.GetDuration("places.timeout"); v > 0 {
		config.Timeout = v
	}
	if v := viper.GetInt("places.max_requests"); v > 0 {
		config.MaxRequests = v
	}

	// Override with direct environment variables if not set
	if config.APIKey == "" {
		config.APIKey = os.Getenv("GOOGLE_PLACES_API_KEY")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadDataMallConfig loads transit API configuration with the same
// precedence as LoadPlacesConfig, falling back to LTA_DATAMALL_API_KEY.
func LoadDataMallConfig() (*datamall.Config, error) {
	config := datamall.DefaultConfig()

	if v := viper.GetString("datamall.api_key"); v != "" {
		config.APIKey = v
	}
	if v := viper.GetString("datamall.base_url"); v != "" {
		config.BaseURL = v
	}
	if v := viper.GetDuration("datamall.timeout"); v > 0 {
		config.Timeout = v
	}
	if v := viper.GetInt("datamall.max_requests"); v > 0 {
		config.MaxRequests = v
	}

	if config.APIKey == "" {
		config.APIKey = os.Getenv("LTA_DATAMALL_API_KEY")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
