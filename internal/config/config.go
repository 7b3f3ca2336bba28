// Package config loads the deck engine's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Meta source kinds.
const (
	MetaSourceNone   = "none"
	MetaSourceStatic = "static"
	MetaSourceHTTP   = "http"
	MetaSourceDB     = "db"
)

// Config represents the application configuration.
type Config struct {
	// Analysis engine configuration
	Engine EngineConfig `toml:"engine"`

	// Optimizer configuration
	Optimizer OptimizerConfig `toml:"optimizer"`

	// SQLite storage configuration
	Storage StorageConfig `toml:"storage"`

	// Meta snapshot source configuration
	Meta MetaConfig `toml:"meta"`

	// HTTP server configuration
	Server ServerConfig `toml:"server"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// EngineConfig contains analysis settings.
type EngineConfig struct {
	DefaultFormat   string `toml:"default_format"`   // Format used when a request names none
	ArchetypeMargin int    `toml:"archetype_margin"` // Secondary archetype margin in score points
	TablesFile      string `toml:"tables_file"`      // Heuristic tables override (empty = bundled)
	CacheSize       int    `toml:"cache_size"`       // Shared analysis cache entries (0 = no cache)
}

// OptimizerConfig contains optimization settings.
type OptimizerConfig struct {
	MaxChanges    int    `toml:"max_changes"`    // Default acceptable changes per run
	MaxCandidates int    `toml:"max_candidates"` // Substitutions evaluated per iteration
	MaxPool       int    `toml:"max_pool"`       // Candidate cards kept in the pool
	Parallelism   int    `toml:"parallelism"`    // Concurrent evaluations (0 = GOMAXPROCS)
	Timeout       string `toml:"timeout"`        // Per-run timeout (e.g., "30s")
}

// StorageConfig contains database settings.
type StorageConfig struct {
	Path           string `toml:"path"`            // SQLite database file
	AutoMigrate    bool   `toml:"auto_migrate"`    // Apply migrations on open
	BackupDir      string `toml:"backup_dir"`      // Backup directory (empty = "backups" next to the database)
	BackupInterval string `toml:"backup_interval"` // Scheduled backups while serving (empty = off)
	BackupKeep     int    `toml:"backup_keep"`     // Backups kept by scheduled runs (0 = all)
}

// MetaConfig contains meta snapshot settings.
type MetaConfig struct {
	Source       string `toml:"source"`        // none, static, http or db
	File         string `toml:"file"`          // YAML snapshot file for static
	URL          string `toml:"url"`           // Base URL for http
	RateInterval string `toml:"rate_interval"` // Minimum interval between requests
	TTL          string `toml:"ttl"`           // Snapshot cache TTL (e.g., "4h")
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool   `toml:"debug_mode"` // Enable debug logging
	LogFormat string `toml:"log_format"` // text or json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Engine: EngineConfig{
			DefaultFormat:   "standard",
			ArchetypeMargin: 15,
			CacheSize:       512,
		},
		Optimizer: OptimizerConfig{
			MaxChanges:    10,
			MaxCandidates: 400,
			MaxPool:       24,
			Timeout:       "30s",
		},
		Storage: StorageConfig{
			Path:        filepath.Join(home, ".deck-engine", "deck-engine.db"),
			AutoMigrate: true,
			BackupKeep:  7,
		},
		Meta: MetaConfig{
			Source:       MetaSourceDB,
			RateInterval: "1s",
			TTL:          "4h",
		},
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*"},
		},
		App: AppConfig{
			LogFormat: "text",
		},
	}
}

// DefaultPath returns ~/.deck-engine/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".deck-engine", "config.toml"), nil
}

// Load loads the configuration at path, or at DefaultPath when path is
// empty. Keys missing from the file keep their defaults, and a missing file
// yields the default configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Engine.ArchetypeMargin < 0 || c.Engine.ArchetypeMargin > 100 {
		return fmt.Errorf("archetype margin must be within 0-100: %d", c.Engine.ArchetypeMargin)
	}
	if c.Engine.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative: %d", c.Engine.CacheSize)
	}

	if c.Optimizer.MaxChanges < 1 {
		return fmt.Errorf("max changes must be positive: %d", c.Optimizer.MaxChanges)
	}
	if c.Optimizer.MaxCandidates < 1 || c.Optimizer.MaxPool < 1 {
		return fmt.Errorf("max candidates and max pool must be positive")
	}
	if c.Optimizer.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative: %d", c.Optimizer.Parallelism)
	}
	if _, err := time.ParseDuration(c.Optimizer.Timeout); err != nil {
		return fmt.Errorf("invalid optimizer timeout %q: %w", c.Optimizer.Timeout, err)
	}

	if c.Storage.BackupInterval != "" {
		if d, err := time.ParseDuration(c.Storage.BackupInterval); err != nil || d < time.Minute {
			return fmt.Errorf("invalid backup interval %q: must be at least 1m", c.Storage.BackupInterval)
		}
	}
	if c.Storage.BackupKeep < 0 {
		return fmt.Errorf("backup keep cannot be negative: %d", c.Storage.BackupKeep)
	}

	switch c.Meta.Source {
	case MetaSourceNone, MetaSourceDB:
	case MetaSourceStatic:
		if c.Meta.File == "" {
			return fmt.Errorf("meta source %q requires meta.file", c.Meta.Source)
		}
	case MetaSourceHTTP:
		if c.Meta.URL == "" {
			return fmt.Errorf("meta source %q requires meta.url", c.Meta.Source)
		}
	default:
		return fmt.Errorf("unknown meta source %q", c.Meta.Source)
	}
	if _, err := time.ParseDuration(c.Meta.RateInterval); err != nil {
		return fmt.Errorf("invalid meta rate interval %q: %w", c.Meta.RateInterval, err)
	}
	if _, err := time.ParseDuration(c.Meta.TTL); err != nil {
		return fmt.Errorf("invalid meta TTL %q: %w", c.Meta.TTL, err)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.App.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.App.LogFormat)
	}
	return nil
}

// OptimizerTimeout returns the optimizer timeout as a duration.
func (c *Config) OptimizerTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Optimizer.Timeout)
	return d
}

// BackupInterval returns the scheduled backup interval, zero when off.
func (c *Config) BackupInterval() time.Duration {
	d, _ := time.ParseDuration(c.Storage.BackupInterval)
	return d
}

// MetaTTL returns the meta cache TTL as a duration.
func (c *Config) MetaTTL() time.Duration {
	d, _ := time.ParseDuration(c.Meta.TTL)
	return d
}

// MetaRateInterval returns the minimum meta request interval as a duration.
func (c *Config) MetaRateInterval() time.Duration {
	d, _ := time.ParseDuration(c.Meta.RateInterval)
	return d
}
