package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DirName is the per-workspace directory holding config, database and logs.
const DirName = ".dispo"

const configFile = "config.yaml"

// Config represents the dispo workspace configuration.
// File values are overridden by DISPO_* environment variables.
type Config struct {
	Version         string        `yaml:"version"`
	User            string        `yaml:"user,omitempty" env:"DISPO_USER"` // default acting user
	DBPath          string        `yaml:"db_path,omitempty" env:"DISPO_DB_PATH"`
	Locale          string        `yaml:"locale,omitempty" env:"DISPO_LOCALE"` // "en" or "id"
	LogLevel        string        `yaml:"log_level,omitempty" env:"DISPO_LOG_LEVEL"`
	MetricsFile     string        `yaml:"metrics_file,omitempty" env:"DISPO_METRICS_FILE"`
	SnapshotRetries int           `yaml:"snapshot_retries" env:"DISPO_SNAPSHOT_RETRIES"`
	RetryDelay      time.Duration `yaml:"retry_delay" env:"DISPO_RETRY_DELAY"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:         "1",
		Locale:          "en",
		LogLevel:        "info",
		SnapshotRetries: 3,
		RetryDelay:      200 * time.Millisecond,
	}
}

// Load reads .dispo/config.yaml from dir and applies the environment overlay.
// A missing file is not an error; defaults are used instead.
func Load(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, DirName, configFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.SnapshotRetries < 0 {
		return nil, fmt.Errorf("snapshot_retries must not be negative, got %d", cfg.SnapshotRetries)
	}
	return cfg, nil
}

// Save writes config.yaml into dir/.dispo.
func Save(dir string, cfg *Config) error {
	dispoDir := filepath.Join(dir, DirName)
	if err := os.MkdirAll(dispoDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", DirName, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dispoDir, configFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DatabasePath returns the sqlite path, relative paths resolved against dir.
func (c *Config) DatabasePath(dir string) string {
	switch {
	case c.DBPath == "":
		return filepath.Join(dir, DirName, "dispo.db")
	case c.DBPath == ":memory:" || filepath.IsAbs(c.DBPath):
		return c.DBPath
	}
	return filepath.Join(dir, c.DBPath)
}

// LogPath returns the log file location for dir.
func LogPath(dir string) string {
	return filepath.Join(dir, DirName, "logs", "dispo.log")
}
