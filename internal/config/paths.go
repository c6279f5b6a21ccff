// Package config loads provider settings and file locations from viper and
// the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Default locations under the user's config directory.
const (
	DefaultDir          = "~/.config/hawker"
	DefaultModelFile    = "hawker_crowd_model.json"
	DefaultDatabaseFile = "hawker.db"
)

// Dir returns the expanded configuration directory.
func Dir() string {
	return ExpandPath(DefaultDir)
}

// ModelPath returns the model bundle location from model.path, or the
// default file in Dir.
func ModelPath() string {
	if v := viper.GetString("model.path"); v != "" {
		return ExpandPath(v)
	}
	return filepath.Join(Dir(), DefaultModelFile)
}

// DatabasePath returns the SQLite location from database.path, or the
// default file in Dir.
func DatabasePath() string {
	if v := viper.GetString("database.path"); v != "" {
		if v == ":memory:" {
			return v
		}
		return ExpandPath(v)
	}
	return filepath.Join(Dir(), DefaultDatabaseFile)
}

// MappingsPath returns an optional mapping file from mappings.path. An empty
// result means the built-in defaults apply.
func MappingsPath() string {
	if v := viper.GetString("mappings.path"); v != "" {
		return ExpandPath(v)
	}
	return ""
}

// ExpandPath expands a leading ~ and any $VAR references in path. The home
// directory is left unexpanded when it cannot be determined.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			rest, _ := strings.CutPrefix(path, "~")
			path = home + rest
		}
	}
	return os.ExpandEnv(path)
}
