// Package config loads and saves the tburn TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all tburn configuration.
type Config struct {
	Trae       TraeConfig       `toml:"trae"`
	Collector  CollectorConfig  `toml:"collector"`
	Storage    StorageConfig    `toml:"storage"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Log        LogConfig        `toml:"log"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// TraeConfig holds the session credential and API hosts.
type TraeConfig struct {
	SessionID     string `toml:"session_id,omitempty"`
	Host          string `toml:"host,omitempty"` // last host that accepted the session
	PrimaryHost   string `toml:"primary_host,omitempty"`
	AlternateHost string `toml:"alternate_host,omitempty"`
}

// CollectorConfig holds pacing and retry tunables.
type CollectorConfig struct {
	PageSize          int `toml:"page_size"`
	RetryMax          int `toml:"retry_max"`
	RetryDelayMs      int `toml:"retry_delay_ms"`
	PageDelayMs       int `toml:"page_delay_ms"`
	RequestTimeoutSec int `toml:"request_timeout_sec"`
	OverlapSec        int `toml:"overlap_sec"`
}

// StorageConfig selects where the usage store lives.
type StorageConfig struct {
	Backend        string `toml:"backend"` // sqlite, file, redis
	Path           string `toml:"path,omitempty"`
	RedisURL       string `toml:"redis_url,omitempty"`
	RedisKeyPrefix string `toml:"redis_key_prefix,omitempty"`
}

// DaemonConfig holds background collection settings.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	IntervalSec  int    `toml:"interval_sec"`
	EventsBuffer int    `toml:"events_buffer"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Collector: CollectorConfig{
			PageSize:          50,
			RetryMax:          5,
			RetryDelayMs:      1000,
			PageDelayMs:       1000,
			RequestTimeoutSec: 10,
			OverlapSec:        3600,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			IntervalSec:  300,
			EventsBuffer: 200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tburn")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "tburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "tburn")
}

// Load reads the default config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path and applies environment overrides.
func LoadFrom(path string) (Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// ReadFile reads the config at path over the defaults, without env overrides.
func ReadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's config file
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TBURN_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("TBURN_REDIS_URL"); v != "" {
		cfg.Storage.RedisURL = v
	}
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // path is the user's config file
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetSessionID returns the session id from env var or config, in that order.
func GetSessionID(cfg Config) string {
	if id := os.Getenv("TRAE_SESSION_ID"); id != "" {
		return id
	}
	return cfg.Trae.SessionID
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// StoragePath returns the configured store location, defaulting to the
// cache directory.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == "file" {
		return CacheDir()
	}
	return filepath.Join(CacheDir(), "usage.db")
}

// PageDelay returns the inter-page delay.
func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Collector.PageDelayMs) * time.Millisecond
}

// RetryDelay returns the delay between transient retries.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Collector.RetryDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Collector.RequestTimeoutSec) * time.Second
}

// Overlap returns the backward overlap applied to incremental windows.
func (c Config) Overlap() time.Duration {
	return time.Duration(c.Collector.OverlapSec) * time.Second
}

// DaemonInterval returns the background collection interval.
func (c Config) DaemonInterval() time.Duration {
	return time.Duration(c.Daemon.IntervalSec) * time.Second
}
