// Package config loads ccledger configuration and the model price table.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all ccledger configuration.
type Config struct {
	General GeneralConfig    `toml:"general"`
	Watch   WatchConfig      `toml:"watch"`
	Pricing PricingOverrides `toml:"pricing"`
}

// GeneralConfig holds paths and general preferences.
type GeneralConfig struct {
	LogDir string `toml:"log_dir,omitempty"` // session log root, defaults to ~/.claude
	DBPath string `toml:"db_path,omitempty"` // defaults to <data dir>/ledger.db
}

// WatchConfig holds watcher loop settings.
type WatchConfig struct {
	IntervalSecs      int `toml:"interval_secs"`
	RecencyWindowSecs int `toml:"recency_window_secs"`
}

// Interval returns the poll interval as a duration.
func (w WatchConfig) Interval() time.Duration {
	return time.Duration(w.IntervalSecs) * time.Second
}

// RecencyWindow returns the recency window as a duration.
func (w WatchConfig) RecencyWindow() time.Duration {
	return time.Duration(w.RecencyWindowSecs) * time.Second
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Watch: WatchConfig{
			IntervalSecs:      30,
			RecencyWindowSecs: 120,
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ccledger")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ccledger")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory for the database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ccledger")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ccledger")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// LogDir returns the session log root from config or the ~/.claude default.
func LogDir(cfg Config) string {
	if cfg.General.LogDir != "" {
		return cfg.General.LogDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// DBPath returns the database path from config or the XDG default.
func DBPath(cfg Config) string {
	if cfg.General.DBPath != "" {
		return cfg.General.DBPath
	}
	return filepath.Join(DataDir(), "ledger.db")
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
