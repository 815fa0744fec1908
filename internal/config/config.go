// Package config loads the tally configuration file.
//
// The file is YAML and optional; every key has a default. Unknown keys are
// rejected so a typo does not silently fall back to a default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppName names the config and data directories.
const AppName = "tally"

// DefaultQuotaBytes matches the browser storage budget the data format was
// designed around.
const DefaultQuotaBytes int64 = 5 * 1024 * 1024

// Config is the decoded configuration.
type Config struct {
	Storage  Storage `yaml:"storage"`
	LogLevel string  `yaml:"log_level"`
	Timezone string  `yaml:"timezone"`
}

// Storage selects and sizes the persister.
type Storage struct {
	Driver     string `yaml:"driver"`
	Path       string `yaml:"path"`
	QuotaBytes int64  `yaml:"quota_bytes"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Storage: Storage{
			Driver:     "sqlite",
			QuotaBytes: DefaultQuotaBytes,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/tally/config.yaml or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, AppName, "config.yaml"), nil
}

// Load reads path. A missing file yields Default(). The result has every
// default filled in and is validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		return cfg, cfg.fill(path)
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes YAML config. path is only used to place the default data
// file next to the config file.
func Parse(data []byte, path string) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.fill(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fill applies defaults that depend on other fields and validates.
func (c *Config) fill(path string) error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "json" {
		return fmt.Errorf("invalid config: storage.driver %q (want sqlite or json)", c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultDataPath(filepath.Dir(path), c.Storage.Driver)
	}
	if c.Storage.QuotaBytes <= 0 {
		c.Storage.QuotaBytes = DefaultQuotaBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SetDriver switches the driver and, when the path was defaulted, the
// default path along with it.
func (c *Config) SetDriver(driver, configPath string) error {
	defaulted := c.Storage.Path == DefaultDataPath(filepath.Dir(configPath), c.Storage.Driver)
	c.Storage.Driver = driver
	if defaulted {
		c.Storage.Path = ""
	}
	return c.fill(configPath)
}

// DefaultDataPath is tally.db or tally.json inside dir.
func DefaultDataPath(dir, driver string) string {
	name := "tally.db"
	if driver == "json" {
		name = "tally.json"
	}
	return filepath.Join(dir, name)
}

// Location resolves Timezone. Empty means the process local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level %q (want debug, info, warn or error)", s)
	}
}
