// Package config loads logkeep settings from a TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/clarabennett2626/logkeep/internal/logs"
	"github.com/pelletier/go-toml/v2"
)

// ProductName names the default log and config directories.
const ProductName = "logkeep"

// Environment overrides, applied after the config file.
const (
	EnvLogDir = "LOGKEEP_LOG_DIR"
	EnvLines  = "LOGKEEP_LINES"
)

// Config holds all application configuration
type Config struct {
	Logs    LogsConfig    `toml:"logs"`
	Display DisplayConfig `toml:"display"`
}

// LogsConfig controls where logs live and how they are read
type LogsConfig struct {
	// Dir is the base directory for relative log names. Empty means the
	// platform default.
	Dir            string `toml:"dir"`
	Lines          int    `toml:"lines"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
}

// DisplayConfig holds options for the interactive viewer
type DisplayConfig struct {
	AltScreen bool   `toml:"alt_screen"`
	Theme     string `toml:"theme"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Logs: LogsConfig{
			Lines:          20,
			PollIntervalMS: 1000,
		},
		Display: DisplayConfig{
			AltScreen: true,
			Theme:     "dark",
		},
	}
}

// Load reads the config file at path on top of the defaults and then applies
// environment overrides. An empty path uses DefaultPath; a missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the parent directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyEnv() error {
	if dir := os.Getenv(EnvLogDir); dir != "" {
		c.Logs.Dir = dir
	}
	if v := os.Getenv(EnvLines); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvLines, v, err)
		}
		c.Logs.Lines = n
	}
	return nil
}

// LogDir returns the configured log directory, or the platform default.
func (c *Config) LogDir() string {
	if c.Logs.Dir != "" {
		return c.Logs.Dir
	}
	return logs.DefaultDir(ProductName)
}

// PollInterval returns the follow-mode polling fallback interval.
func (c *Config) PollInterval() time.Duration {
	if c.Logs.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.Logs.PollIntervalMS) * time.Millisecond
}

// DefaultPath returns the config file path, or "" when no user config
// directory can be determined.
func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, ProductName, "config.toml")
}
