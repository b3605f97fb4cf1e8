// Package config loads engine configuration from an optional file,
// read once at process start.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the settings the CLI front-ends pass through to
// storage.EngineConfig.
type Config struct {
	DataDir    string
	FlushBytes int64
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		DataDir:    "kvdata",
		FlushBytes: 4 * 1024 * 1024,
	}
}

// Load reads path (if non-empty) and overlays any keys it sets on top
// of Default. Unlike the config-watching pattern elsewhere in the
// corpus, there is no hot-reload here: a running Engine is
// single-threaded, so reloading its settings from a filesystem watcher
// goroutine would be a second writer by another name.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if v.IsSet("data_dir") {
		cfg.DataDir = v.GetString("data_dir")
	}
	if v.IsSet("flush_bytes") {
		cfg.FlushBytes = v.GetInt64("flush_bytes")
	}
	return cfg, nil
}
