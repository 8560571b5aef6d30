// Package config holds the server configuration read from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level todoboard.yml configuration.
type Config struct {
	Addr     string      `yaml:"addr"`
	Lists    int         `yaml:"lists"`     // number of lists on a freshly initialized board
	LogLevel string      `yaml:"log_level"` // debug, info, warn or error
	Store    StoreConfig `yaml:"store"`
	Redis    RedisConfig `yaml:"redis"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // file, sqlite or redis
	Path   string `yaml:"path"`
}

// RedisConfig enables the redis store driver and the cross-process relay.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Instance string `yaml:"instance"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:     ":5000",
		Lists:    20,
		LogLevel: "info",
		Store: StoreConfig{
			Driver: "file",
			Path:   "./db.json",
		},
		Redis: RedisConfig{
			Instance: "default",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate performs strict validation on the configuration.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.Lists < 1 {
		return fmt.Errorf("lists must be at least 1, got %d", c.Lists)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "file", "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store driver '%s' (expected: file, sqlite, redis)", c.Store.Driver)
	}
	if c.Redis.Addr != "" && c.Redis.Instance == "" {
		return fmt.Errorf("redis.instance cannot be empty")
	}
	return nil
}

// ParseLevel maps a log level name onto slog.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level '%s'", name)
	}
}
