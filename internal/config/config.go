// Package config resolves runtime settings: defaults, then an optional
// YAML file, then TALLY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath        string
	UserID        string
	TickInterval  time.Duration
	AutosaveEvery int
	RetryInitial  time.Duration
	RetryMax      time.Duration
	WriteTimeout  time.Duration
	LogLevel      string
	LogFile       string
	Currency      string
}

// fileConfig is the on-disk shape. Durations are milliseconds.
type fileConfig struct {
	DBPath         string `yaml:"db_path"`
	UserID         string `yaml:"user_id"`
	TickMs         int    `yaml:"tick_ms"`
	AutosaveTicks  int    `yaml:"autosave_ticks"`
	RetryInitialMs int    `yaml:"retry_initial_ms"`
	RetryMaxMs     int    `yaml:"retry_max_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	LogLevel       string `yaml:"log_level"`
	LogFile        string `yaml:"log_file"`
	Currency       string `yaml:"currency"`
}

// HomeDir is where the default database, log and config file live.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".tally"), nil
}

// Default returns the built-in settings rooted at dir.
func Default(dir string) Config {
	return Config{
		DBPath:        filepath.Join(dir, "tally.db"),
		UserID:        "local",
		TickInterval:  time.Second,
		AutosaveEvery: 30,
		RetryInitial:  500 * time.Millisecond,
		RetryMax:      30 * time.Second,
		WriteTimeout:  5 * time.Second,
		LogLevel:      "info",
		LogFile:       filepath.Join(dir, "tally.log"),
		Currency:      "$",
	}
}

// Load builds the effective configuration. The file named by TALLY_CONFIG,
// or config.yaml in the tally home directory, is optional; a missing file
// is not an error.
func Load() (Config, error) {
	dir, err := HomeDir()
	if err != nil {
		return Config{}, err
	}
	cfg := Default(dir)

	path := os.Getenv("TALLY_CONFIG")
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}
	if err := applyFile(&cfg, path); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.UserID, fc.UserID)
	setMillis(&cfg.TickInterval, fc.TickMs)
	if fc.AutosaveTicks > 0 {
		cfg.AutosaveEvery = fc.AutosaveTicks
	}
	setMillis(&cfg.RetryInitial, fc.RetryInitialMs)
	setMillis(&cfg.RetryMax, fc.RetryMaxMs)
	setMillis(&cfg.WriteTimeout, fc.WriteTimeoutMs)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.Currency, fc.Currency)
	return nil
}

// applyEnv overrides cfg from the environment. Malformed numbers are ignored.
func applyEnv(cfg *Config) {
	setString(&cfg.DBPath, os.Getenv("TALLY_DB"))
	setString(&cfg.UserID, os.Getenv("TALLY_USER"))
	setString(&cfg.LogLevel, os.Getenv("TALLY_LOG_LEVEL"))
	setString(&cfg.LogFile, os.Getenv("TALLY_LOG_FILE"))
	setString(&cfg.Currency, os.Getenv("TALLY_CURRENCY"))

	setMillis(&cfg.TickInterval, envInt("TALLY_TICK_MS"))
	setMillis(&cfg.RetryInitial, envInt("TALLY_RETRY_INITIAL_MS"))
	setMillis(&cfg.RetryMax, envInt("TALLY_RETRY_MAX_MS"))
	setMillis(&cfg.WriteTimeout, envInt("TALLY_WRITE_TIMEOUT_MS"))
	if n := envInt("TALLY_AUTOSAVE_TICKS"); n > 0 {
		cfg.AutosaveEvery = n
	}
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setMillis(dst *time.Duration, ms int) {
	if ms > 0 {
		*dst = time.Duration(ms) * time.Millisecond
	}
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db path is required")
	}
	if c.UserID == "" {
		return fmt.Errorf("config: user id is required")
	}
	if c.TickInterval <= 0 || c.RetryInitial <= 0 || c.RetryMax <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("config: intervals must be positive")
	}
	if c.RetryMax < c.RetryInitial {
		return fmt.Errorf("config: retry max (%s) is below retry initial (%s)", c.RetryMax, c.RetryInitial)
	}
	if c.AutosaveEvery <= 0 {
		return fmt.Errorf("config: autosave ticks must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
