// internal/config/types.go

// Package config provides the application configuration for crosslink.
// It covers logging, the rule store backend, the HTTP API, metrics and the
// optional headless browser used to snapshot rendered pages.
package config

import (
	"time"
)

// Supported rule store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
	BackendMongoDB  = "mongodb"
)

// DefaultRulesKey is the storage key the rule set is persisted under.
const DefaultRulesKey = "crosslink:site-rules"

// DefaultRulesTable is the table or collection used by database backends.
const DefaultRulesTable = "site_rules"

// Config represents the main application configuration.
type Config struct {
	// Log controls the shared logger
	Log LogConfig `yaml:"log" json:"log"`

	// Rules selects where the rule set is persisted
	Rules RulesConfig `yaml:"rules" json:"rules"`

	// Server configures the HTTP API
	Server ServerConfig `yaml:"server" json:"server"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Browser configures rendered page snapshots
	Browser BrowserConfig `yaml:"browser" json:"browser"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level" json:"level"`

	// Format is one of text, json, logfmt
	Format string `yaml:"format" json:"format"`
}

// RulesConfig defines the rule store.
type RulesConfig struct {
	// Backend is one of memory, file, sqlite, postgres, mysql, mongodb
	Backend string `yaml:"backend" json:"backend"`

	// Path is the rule file for the file backend, or the database file for sqlite
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// DSN is the connection string for database backends
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// Database is the MongoDB database name
	Database string `yaml:"database,omitempty" json:"database,omitempty"`

	// Table is the SQL table or MongoDB collection holding the rule set
	Table string `yaml:"table" json:"table"`

	// Key is the storage key of the rule set
	Key string `yaml:"key" json:"key"`

	// Watch reloads the engine when the rule file changes
	Watch bool `yaml:"watch" json:"watch"`

	// Timeout bounds each backend operation
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string        `yaml:"listen" json:"listen"`
	RateLimit    float64       `yaml:"rate_limit" json:"rate_limit"`
	Burst        int           `yaml:"burst" json:"burst"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// MetricsConfig defines the metrics endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Path      string `yaml:"path" json:"path"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// BrowserConfig defines headless browser snapshots.
type BrowserConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Headless     bool          `yaml:"headless" json:"headless"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	WaitSelector string        `yaml:"wait_selector,omitempty" json:"wait_selector,omitempty"`
	UserAgent    string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}
