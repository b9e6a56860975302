// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendBBolt  = "bbolt"
)

// devCursorSecret signs cursors outside production when no secret is set.
const devCursorSecret = "tsundoku-dragon-development-cursor-secret"

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Store  StoreConfig
	Battle BattleConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	// Backend is one of badger, sqlite or bbolt.
	Backend string `env:"STORE_BACKEND" envDefault:"badger"`
	// DataPath is the directory holding the database files (default: ~/TsundokuDragon/data).
	DataPath string `env:"DATA_PATH"`
	// CursorSecret signs pagination cursors. Required in production.
	CursorSecret string `env:"CURSOR_SECRET"`
	// GlobalSkillCacheTTL is how long the global skill catalog is cached.
	GlobalSkillCacheTTL time.Duration `env:"GLOBAL_SKILL_CACHE_TTL" envDefault:"5m"`
}

// BattleConfig tunes battle recording.
type BattleConfig struct {
	// MaxRetries bounds the replays of a book write that lost a concurrent update.
	MaxRetries int `env:"BATTLE_MAX_RETRIES" envDefault:"5"`
}

// Overrides carries values given on the command line. Empty fields are ignored.
type Overrides struct {
	Environment  string
	LogLevel     string
	StoreBackend string
	DataPath     string
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// EnvFile is the .env file to load. Missing files are ignored.
	EnvFile string
	Flags   Overrides
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyOverrides(opts.Flags)

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Store.CursorSecret == "" && cfg.App.Environment != "production" {
		cfg.Store.CursorSecret = devCursorSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyOverrides(o Overrides) {
	if o.Environment != "" {
		c.App.Environment = o.Environment
	}
	if o.LogLevel != "" {
		c.Logger.Level = o.LogLevel
	}
	if o.StoreBackend != "" {
		c.Store.Backend = o.StoreBackend
	}
	if o.DataPath != "" {
		c.Store.DataPath = o.DataPath
	}
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	if !slices.Contains([]string{"development", "staging", "production"}, c.App.Environment) {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if !slices.Contains([]string{BackendBadger, BackendSQLite, BackendBBolt}, c.Store.Backend) {
		return fmt.Errorf("invalid store backend: %s (must be badger, sqlite, or bbolt)", c.Store.Backend)
	}

	if c.Store.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Store.CursorSecret == "" {
		return errors.New("CURSOR_SECRET is required in production")
	}

	if c.Store.GlobalSkillCacheTTL <= 0 {
		return fmt.Errorf("invalid global skill cache ttl: %s (must be positive)", c.Store.GlobalSkillCacheTTL)
	}

	if c.Battle.MaxRetries < 1 {
		return fmt.Errorf("invalid battle max retries: %d (must be at least 1)", c.Battle.MaxRetries)
	}

	return nil
}

// StorePath returns the database location for the configured backend.
// Badger uses a directory; sqlite and bbolt use a single file.
func (c *Config) StorePath() string {
	switch c.Store.Backend {
	case BackendSQLite:
		return filepath.Join(c.Store.DataPath, "tsundoku.sqlite")
	case BackendBBolt:
		return filepath.Join(c.Store.DataPath, "tsundoku.bolt")
	default:
		return filepath.Join(c.Store.DataPath, "badger")
	}
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	var defaultPath string
	if c.Store.DataPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultPath = filepath.Join(homeDir, "TsundokuDragon", "data")
	}

	expanded, err := expandPath(c.Store.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded
	return nil
}
