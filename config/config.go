// Package config provides configuration loading for neosierra.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete neosierra configuration
type Config struct {
	Neo4j    Neo4jConfig `yaml:"neo4j"`
	LogLevel string      `yaml:"log_level"`
	Sync     SyncConfig  `yaml:"sync"`
}

// Neo4jConfig configures the database connection
type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Database is the named database to use (ignored by 3.x servers)
	Database string `yaml:"database"`
	// Version is the server version, e.g. "4.4" or "5"
	Version string `yaml:"version"`
}

// SyncConfig configures the file synchronizer
type SyncConfig struct {
	// Debounce is how long a file must be quiet before it is processed
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			URI:      "neo4j://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
			Version:  "5",
		},
		LogLevel: "info",
		Sync: SyncConfig{
			Debounce: 200 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}
	if c.Neo4j.Username == "" {
		return fmt.Errorf("neo4j.username is required")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Sync.Debounce < 0 {
		return fmt.Errorf("sync.debounce must not be negative")
	}
	return nil
}

// EffectiveDatabase returns the database name to select on the server. Servers older
// than 4.0 have no named databases, so the name is dropped for them.
func (c *Config) EffectiveDatabase() string {
	major, _, _ := strings.Cut(strings.TrimSpace(c.Neo4j.Version), ".")
	if n, err := strconv.Atoi(major); err == nil && n < 4 {
		return ""
	}
	return c.Neo4j.Database
}

// ParseLevel maps a log level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level %q must be one of debug, info, warn, error", s)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Neo4j.URI != "" {
		c.Neo4j.URI = other.Neo4j.URI
	}
	if other.Neo4j.Username != "" {
		c.Neo4j.Username = other.Neo4j.Username
	}
	if other.Neo4j.Password != "" {
		c.Neo4j.Password = other.Neo4j.Password
	}
	if other.Neo4j.Database != "" {
		c.Neo4j.Database = other.Neo4j.Database
	}
	if other.Neo4j.Version != "" {
		c.Neo4j.Version = other.Neo4j.Version
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}

	if other.Sync.Debounce != 0 {
		c.Sync.Debounce = other.Sync.Debounce
	}
}
