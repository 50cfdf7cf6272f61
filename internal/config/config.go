// Package config loads the agent's settings from an optional YAML file plus
// environment overrides, the same two-layer approach the teacher's server
// used for plain environment variables, adapted to the richer structured
// config a long-running editor plugin needs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything cmd/agent needs to start a Client against a
// Transport.
type Config struct {
	Address     string `yaml:"address"`      // address spec passed to transport.ParseAddr
	DisplayName string `yaml:"display_name"` // sent on the "new:" negotiation line
	LogPath     string `yaml:"log_path"`
	LogLevel    string `yaml:"log_level"` // "debug", "info", or "error"
}

func defaults() Config {
	return Config{
		Address:     "8765",
		DisplayName: "anonymous",
		LogPath:     "log",
		LogLevel:    "info",
	}
}

// Load reads path (if it exists) over top of the defaults, then applies
// EDITAGENT_-prefixed environment overrides. A missing file is not an
// error: every field already has a usable default.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Address = getEnv("EDITAGENT_ADDRESS", cfg.Address)
	cfg.DisplayName = getEnv("EDITAGENT_DISPLAY_NAME", cfg.DisplayName)
	cfg.LogPath = getEnv("EDITAGENT_LOG_PATH", cfg.LogPath)
	cfg.LogLevel = getEnv("EDITAGENT_LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
