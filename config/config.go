// Package config loads runtime configuration from an optional YAML
// file with environment-variable overrides on top.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration for the client and server
// binaries.
type Config struct {
	Content ContentConfig `yaml:"content"`
	Sync    SyncConfig    `yaml:"sync"`
	Server  ServerConfig  `yaml:"server"`
	UI      UIConfig      `yaml:"ui"`
}

// ContentConfig locates the simulation content pack.
type ContentConfig struct {
	Dir string `yaml:"dir" env:"STAKECRAFT_CONTENT_DIR"`
}

// SyncConfig controls the backend day-resolution client.
type SyncConfig struct {
	Enabled bool   `yaml:"enabled" env:"STAKECRAFT_SYNC_ENABLED"`
	BaseURL string `yaml:"base_url" env:"STAKECRAFT_SYNC_URL"`
}

// ServerConfig configures the companion server binary.
type ServerConfig struct {
	Addr         string `yaml:"addr" env:"STAKECRAFT_SERVER_ADDR"`
	DatabasePath string `yaml:"database_path" env:"STAKECRAFT_DB_PATH"`
}

// UIConfig selects the front end.
type UIConfig struct {
	Plain bool `yaml:"plain" env:"STAKECRAFT_PLAIN"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Content: ContentConfig{Dir: "content"},
		Sync:    SyncConfig{BaseURL: "http://localhost:8080"},
		Server:  ServerConfig{Addr: ":8080", DatabasePath: "stakecraft.db"},
	}
}

// Load reads path (if non-empty and present) over the defaults, then
// applies environment overrides. A missing file is only an error when
// it was named explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}
