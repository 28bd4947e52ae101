// Package config loads the settings of the gojorel tools from a YAML file.
//
// Lookup order when no path is given:
//  1. $GOJOREL_CONFIG
//  2. ./gojorel.yaml
//
// Without a file the defaults are used: an in-memory store, info logging to
// stdout and telemetry disabled.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/sushant-115/gojorel/core/storage"
	"github.com/sushant-115/gojorel/pkg/logger"
	"github.com/sushant-115/gojorel/pkg/telemetry"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "GOJOREL_CONFIG"
	DefaultConfigPath = "gojorel.yaml"
)

// MappingConfig points at the relation mapping file.
type MappingConfig struct {
	Path string `yaml:"path"`
}

type Config struct {
	Logger    logger.Config    `yaml:"logger"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Storage   storage.Config   `yaml:"storage"`
	Mapping   MappingConfig    `yaml:"mapping"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config file at path. An empty path searches the default
// locations and falls back to Default. The returned string is the file that
// was read, if any.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = findConfigPath()
		if path == "" {
			return Default(), "", nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "bolt":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the bolt driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.LoadRateLimit < 0 {
		return fmt.Errorf("storage.load_rate_limit must not be negative, got %v", c.Storage.LoadRateLimit)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
	if c.Logger.OutputFile == "" {
		c.Logger.OutputFile = "stdout"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = logger.ServiceName
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Driver == "bolt" && c.Storage.Timeout == 0 {
		c.Storage.Timeout = time.Second
	}
}

func findConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return DefaultConfigPath
	}
	return ""
}
