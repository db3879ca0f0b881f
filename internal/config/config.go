package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultServerURL  = "http://127.0.0.1:8765"
	defaultIntervalMS = 2500
)

// Config holds the client settings. Resolution order is flag > env >
// config file > default; flags are applied by the caller on top of the
// loaded config.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Polling PollingConfig `toml:"polling"`
}

type ServerConfig struct {
	URL  string `toml:"url"`
	Live bool   `toml:"live"` // subscribe to the websocket change feed
}

type DataConfig struct {
	Dir string `toml:"dir"` // sqlite db + log file location
}

type PollingConfig struct {
	IntervalMS int `toml:"interval_ms"`
}

// Interval returns the poll period for both stores.
func (c Config) Interval() time.Duration {
	ms := c.Polling.IntervalMS
	if ms <= 0 {
		ms = defaultIntervalMS
	}
	return time.Duration(ms) * time.Millisecond
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "labbook", "config.toml"), nil
}

func defaults() Config {
	var dataDir string
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "labbook")
	}
	return Config{
		Server:  ServerConfig{URL: defaultServerURL},
		Data:    DataConfig{Dir: dataDir},
		Polling: PollingConfig{IntervalMS: defaultIntervalMS},
	}
}

// Load reads the config file at path (DefaultPath when empty) and applies
// environment overrides. A missing file is not an error; a malformed one
// is.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file; defaults + env.
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LABBOOK_SERVER"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("LABBOOK_DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("LABBOOK_POLL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Polling.IntervalMS = ms
		}
	}
}
