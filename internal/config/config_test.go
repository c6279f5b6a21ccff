package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/datamall"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadPlacesConfig(t *testing.T) {
	tests := []struct {
		viperValues map[string]any
		envVars     map[string]string
		name        string
		wantKey     string
		wantErr     error
		wantTimeout time.Duration
	}{
		{
			name:    "key from viper wins",
			envVars: map[string]string{"GOOGLE_PLACES_API_KEY": "from-env"},
			viperValues: map[string]any{
				"places.api_key": "from-viper",
				"places.timeout": "5s",
			},
			wantKey:     "from-viper",
			wantTimeout: 5 * time.Second,
		},
		{
			name:    "falls back to environment",
			envVars: map[string]string{"GOOGLE_PLACES_API_KEY": "from-env"},
			wantKey: "from-env",
		},
		{
			name:    "missing key",
			envVars: map[string]string{"GOOGLE_PLACES_API_KEY": ""},
			wantErr: common.ErrMissingConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			for k, v := range tt.viperValues {
				viper.Set(k, v)
			}

			cfg, err := LoadPlacesConfig()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.APIKey)
			if tt.wantTimeout > 0 {
				assert.Equal(t, tt.wantTimeout, cfg.Timeout)
			}
		})
	}
}

func TestLoadDataMallConfig(t *testing.T) {
	t.Run("defaults with env key", func(t *testing.T) {
		resetViper(t)
		t.Setenv("LTA_DATAMALL_API_KEY", "lta-key")

		cfg, err := LoadDataMallConfig()
		require.NoError(t, err)
		assert.Equal(t, "lta-key", cfg.APIKey)
		assert.Equal(t, datamall.DefaultBaseURL, cfg.BaseURL)
	})

	t.Run("overrides", func(t *testing.T) {
		resetViper(t)
		t.Setenv("LTA_DATAMALL_API_KEY", "")
		viper.Set("datamall.api_key", "viper-key")
		viper.Set("datamall.base_url", "http://127.0.0.1:9999/")
		viper.Set("datamall.max_requests", 7)

		cfg, err := LoadDataMallConfig()
		require.NoError(t, err)
		assert.Equal(t, "viper-key", cfg.APIKey)
		assert.Equal(t, "http://127.0.0.1:9999/", cfg.BaseURL)
		assert.Equal(t, 7, cfg.MaxRequests)
	})

	t.Run("missing key", func(t *testing.T) {
		resetViper(t)
		t.Setenv("LTA_DATAMALL_API_KEY", "")

		_, err := LoadDataMallConfig()
		require.ErrorIs(t, err, common.ErrMissingConfig)
	})
}

func TestPaths(t *testing.T) {
	resetViper(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".config", "hawker", DefaultModelFile), ModelPath())
	assert.Equal(t, filepath.Join(home, ".config", "hawker", DefaultDatabaseFile), DatabasePath())
	assert.Empty(t, MappingsPath())

	viper.Set("model.path", "~/models/crowd.json")
	viper.Set("database.path", ":memory:")
	viper.Set("mappings.path", "$HAWKER_TEST_DIR/mappings.json")
	t.Setenv("HAWKER_TEST_DIR", "/tmp/hawker")

	assert.Equal(t, filepath.Join(home, "models", "crowd.json"), ModelPath())
	assert.Equal(t, ":memory:", DatabasePath())
	assert.Equal(t, "/tmp/hawker/mappings.json", MappingsPath())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("HAWKER_EXPAND", "value")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/x", filepath.Join(home, "x")},
		{"/abs/$HAWKER_EXPAND", "/abs/value"},
		{"relative", "relative"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
