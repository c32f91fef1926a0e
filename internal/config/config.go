// Package config loads the shellbridge CLI configuration file.
//
// The file is YAML. Every field is optional; command-line flags override
// anything set here.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI configuration.
type Config struct {
	// Database is the SQLite database path. Empty means in-memory.
	Database string `yaml:"database"`

	// SeedFile is a path to a SQL script executed during engine bootstrap.
	SeedFile string `yaml:"seed_file"`

	// SendBuffer is the per-direction envelope buffer of the bridge
	// transport. Zero means the built-in default.
	SendBuffer int `yaml:"send_buffer"`

	// LogLevel is one of debug, info, warn, error. Empty disables logging.
	LogLevel string `yaml:"log_level"`
}

// Load reads and parses a configuration file. A missing path returns the
// zero Config without error so the CLI works with no file at all.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SendBuffer < 0 {
		return fmt.Errorf("send_buffer must not be negative, got %d", c.SendBuffer)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}

// Level maps LogLevel to a slog level. The second value is an error for
// values outside the vocabulary; an empty LogLevel maps to slog.LevelError
// so a logger built from it stays effectively silent.
func (c *Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error", "":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level %q: must be debug, info, warn, or error", c.LogLevel)
	}
}
