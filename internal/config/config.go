// Package config loads cmd/mtt's optional settings file. Grounded on
// dmitrymodder-minewire's server.yaml loading (main.go): a yaml.v3-
// decoded struct with defaults applied for anything the file omits.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the client settings that aren't supplied as CLI arguments.
type Config struct {
	MediaCacheDir string `yaml:"media_cache_dir"`
	LogLevel      string `yaml:"log_level"`
	HandshakeTimeoutMS int `yaml:"handshake_timeout_ms"`
}

// Default returns the built-in configuration used when no file is present.
func Default() Config {
	return Config{
		MediaCacheDir:      "",
		LogLevel:           "info",
		HandshakeTimeoutMS: 5000,
	}
}

// Load reads and decodes path, falling back to Default() for any field
// the file doesn't mention (yaml.v3 leaves unset struct fields alone, so
// callers start from Default() and decode over it).
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
