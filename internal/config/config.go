// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Rules: RulesConfig{
			Backend: BackendFile,
			Path:    "rules.json",
			Key:     DefaultRulesKey,
			Table:   DefaultRulesTable,
			Watch:   true,
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Listen:       ":8080",
			RateLimit:    20,
			Burst:        40,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			MaxBodyBytes: 5 << 20,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "crosslink",
		},
		Browser: BrowserConfig{
			Enabled:  false,
			Headless: true,
			Timeout:  30 * time.Second,
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg, err := LoadFromBytes(data)
	if err != nil {
		return nil, err
	}

	// A relative rule path is resolved next to the configuration file.
	if cfg.Rules.Path != "" && !filepath.IsAbs(cfg.Rules.Path) {
		cfg.Rules.Path = filepath.Join(filepath.Dir(filename), cfg.Rules.Path)
	}
	return cfg, nil
}

// LoadFromBytes loads configuration from YAML bytes. Keys missing from the
// document keep their default values.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// SaveToWriter writes the configuration as YAML
func SaveToWriter(cfg *Config, writer io.Writer) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}
	return encoder.Close()
}

// expandEnvironmentVariables substitutes ${VAR} and ${VAR:-default}.
// Other dollar signs are left alone.
func expandEnvironmentVariables(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(token string) string {
		m := envPattern.FindStringSubmatch(token)
		if value, ok := os.LookupEnv(m[1]); ok && value != "" {
			return value
		}
		return m[2]
	})
}

// applyDefaults fills values explicitly blanked in the document.
func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}

	if cfg.Rules.Backend == "" {
		cfg.Rules.Backend = defaults.Rules.Backend
	}
	if cfg.Rules.Key == "" {
		cfg.Rules.Key = defaults.Rules.Key
	}
	if cfg.Rules.Table == "" {
		cfg.Rules.Table = defaults.Rules.Table
	}
	if cfg.Rules.Timeout == 0 {
		cfg.Rules.Timeout = defaults.Rules.Timeout
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = defaults.Server.Listen
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaults.Metrics.Path
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = defaults.Metrics.Namespace
	}

	if cfg.Browser.Timeout == 0 {
		cfg.Browser.Timeout = defaults.Browser.Timeout
	}
}
