package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/locate/internal/indexer"
	"github.com/dshills/locate/internal/searcher"
)

const (
	// DirName is the per-user directory holding the config and the store
	DirName = ".locate"
	// FileName is the config file looked up inside DirName
	FileName = "config.yaml"
	// DatabaseFileName is the default store file inside DirName
	DatabaseFileName = "locate.sqlite"
)

// Environment variables that override file values
const (
	EnvConfigPath = "LOCATE_CONFIG"
	EnvDBPath     = "LOCATE_DB_PATH"
	EnvBatchSize  = "LOCATE_BATCH_SIZE"
	EnvLogLevel   = "LOCATE_LOG_LEVEL"
)

// Config is the user configuration
type Config struct {
	DatabasePath  string       `yaml:"database_path"`
	BatchSize     int          `yaml:"batch_size"`
	Exclusions    []string     `yaml:"exclusions"`
	IncludeHidden bool         `yaml:"include_hidden"`
	Search        SearchConfig `yaml:"search"`
	LogLevel      string       `yaml:"log_level"`
}

// SearchConfig holds result limits and caching
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// CacheSize is the number of cached responses; negative disables the cache
	CacheSize int `yaml:"cache_size"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DatabasePath: defaultDatabasePath(),
		BatchSize:    indexer.DefaultBatchSize,
		Exclusions:   append([]string(nil), indexer.DefaultExclusions...),
		Search: SearchConfig{
			DefaultLimit: searcher.DefaultLimit,
			MaxLimit:     searcher.DefaultMaxLimit,
			CacheSize:    searcher.DefaultCacheSize,
		},
		LogLevel: "info",
	}
}

// Dir returns the per-user configuration directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns the config file used when none is given.
// LOCATE_CONFIG takes precedence over the per-user location.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(Dir(), FileName)
}

func defaultDatabasePath() string {
	return filepath.Join(Dir(), DatabaseFileName)
}

// Load reads the config at path, or DefaultPath when path is empty. A missing
// file yields the defaults. Environment overrides are applied last and the
// result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	cfg.DatabasePath = expandHome(cfg.DatabasePath)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over the current values. Keys absent from the file
// keep their defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvBatchSize, v, err)
		}
		c.BatchSize = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the configuration for values the core rejects
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit <= 0 {
		return fmt.Errorf("search.max_limit must be positive, got %d", c.Search.MaxLimit)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}
	return nil
}

// EnsureDatabaseDir creates the directory holding the store file
func (c *Config) EnsureDatabaseDir() error {
	dir := filepath.Dir(c.DatabasePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

// IndexerConfig returns the rebuild settings
func (c *Config) IndexerConfig() *indexer.Config {
	return &indexer.Config{
		BatchSize:     c.BatchSize,
		Exclusions:    append([]string{}, c.Exclusions...),
		IncludeHidden: c.IncludeHidden,
	}
}

// SearcherOptions returns the search settings
func (c *Config) SearcherOptions() searcher.Options {
	return searcher.Options{
		DefaultLimit: c.Search.DefaultLimit,
		MaxLimit:     c.Search.MaxLimit,
		CacheSize:    c.Search.CacheSize,
	}
}

// WriteYAML writes the configuration to a YAML file
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
