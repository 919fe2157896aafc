// internal/config/validation.go - Configuration validation with detailed error messages
package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("%s: %s (value: %s)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) addError(field, value, format string, args ...interface{}) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf(format, args...),
	})
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json", "logfmt"}
	validBackends   = []string{BackendMemory, BackendFile, BackendSQLite, BackendPostgres, BackendMySQL, BackendMongoDB}
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	result := c.ValidateWithDetails()
	if !result.Valid {
		return formatValidationError(result)
	}
	return nil
}

// ValidateWithDetails provides detailed validation results
func (c *Config) ValidateWithDetails() *ValidationResult {
	result := &ValidationResult{
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateLog(result)
	c.validateRules(result)
	c.validateServer(result)
	c.validateMetrics(result)
	c.validateBrowser(result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (c *Config) validateLog(result *ValidationResult) {
	if !contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		result.addError("log.level", c.Log.Level, "unsupported log level, expected one of %s", strings.Join(validLogLevels, ", "))
	}
	if !contains(validLogFormats, strings.ToLower(c.Log.Format)) {
		result.addError("log.format", c.Log.Format, "unsupported log format, expected one of %s", strings.Join(validLogFormats, ", "))
	}
}

func (c *Config) validateRules(result *ValidationResult) {
	r := c.Rules

	if !contains(validBackends, r.Backend) {
		result.addError("rules.backend", r.Backend, "unsupported backend, expected one of %s", strings.Join(validBackends, ", "))
		return
	}

	if strings.TrimSpace(r.Key) == "" {
		result.addError("rules.key", "", "storage key is required")
	}
	if r.Timeout < 0 {
		result.addError("rules.timeout", r.Timeout.String(), "timeout cannot be negative")
	}

	switch r.Backend {
	case BackendFile:
		if r.Path == "" {
			result.addError("rules.path", "", "file backend requires a path")
		}
	case BackendSQLite:
		if r.Path == "" && r.DSN == "" {
			result.addError("rules.path", "", "sqlite backend requires a path or a dsn")
		}
	case BackendPostgres, BackendMySQL:
		if r.DSN == "" {
			result.addError("rules.dsn", "", "%s backend requires a dsn", r.Backend)
		}
	case BackendMongoDB:
		if r.DSN == "" {
			result.addError("rules.dsn", "", "mongodb backend requires a connection URI")
		}
		if r.Database == "" {
			result.addError("rules.database", "", "mongodb backend requires a database name")
		}
	}

	if r.Watch && r.Backend != BackendFile {
		result.Warnings = append(result.Warnings, fmt.Sprintf("rules.watch has no effect with the %s backend", r.Backend))
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	s := c.Server

	if strings.TrimSpace(s.Listen) == "" {
		result.addError("server.listen", "", "listen address is required")
	}
	if s.RateLimit < 0 {
		result.addError("server.rate_limit", fmt.Sprintf("%g", s.RateLimit), "rate limit cannot be negative")
	}
	if s.RateLimit > 0 && s.Burst < 1 {
		result.addError("server.burst", fmt.Sprintf("%d", s.Burst), "burst must be at least 1 when rate limiting is enabled")
	}
	if s.ReadTimeout < 0 {
		result.addError("server.read_timeout", s.ReadTimeout.String(), "timeout cannot be negative")
	}
	if s.WriteTimeout < 0 {
		result.addError("server.write_timeout", s.WriteTimeout.String(), "timeout cannot be negative")
	}
	if s.MaxBodyBytes < 0 {
		result.addError("server.max_body_bytes", fmt.Sprintf("%d", s.MaxBodyBytes), "body limit cannot be negative")
	}
}

func (c *Config) validateMetrics(result *ValidationResult) {
	if !c.Metrics.Enabled {
		return
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		result.addError("metrics.path", c.Metrics.Path, "metrics path must start with /")
	}
	if strings.HasPrefix(c.Metrics.Path, "/api/") || c.Metrics.Path == "/health" {
		result.addError("metrics.path", c.Metrics.Path, "metrics path collides with an API route")
	}
}

func (c *Config) validateBrowser(result *ValidationResult) {
	if c.Browser.Timeout < 0 {
		result.addError("browser.timeout", c.Browser.Timeout.String(), "timeout cannot be negative")
	}
}

// formatValidationError creates a comprehensive error message
func formatValidationError(result *ValidationResult) error {
	var errorMsg strings.Builder

	errorMsg.WriteString("configuration validation failed:\n")

	for i, err := range result.Errors {
		errorMsg.WriteString(fmt.Sprintf("  %d. %s", i+1, err.Message))
		if err.Field != "" {
			errorMsg.WriteString(fmt.Sprintf(" (field: %s)", err.Field))
		}
		if err.Value != "" {
			errorMsg.WriteString(fmt.Sprintf(" (value: %s)", err.Value))
		}
		errorMsg.WriteString("\n")
	}

	return fmt.Errorf("%s", errorMsg.String())
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
