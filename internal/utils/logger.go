// internal/utils/logger.go

package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger defines the interface for logging throughout the application.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogFormat selects the output encoding of log records.
type LogFormat string

const (
	FormatText   LogFormat = "text"
	FormatJSON   LogFormat = "json"
	FormatLogfmt LogFormat = "logfmt"
)

var (
	baseMu sync.RWMutex
	base   = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})
)

// ConfigureLogging replaces the shared log sink. Loggers created earlier
// pick up the new settings on their next call.
func ConfigureLogging(w io.Writer, level string, format LogFormat) error {
	if w == nil {
		w = os.Stderr
	}

	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("unknown log level %q: %w", level, err)
		}
		lvl = parsed
	}

	var formatter log.Formatter
	switch format {
	case "", FormatText:
		formatter = log.TextFormatter
	case FormatJSON:
		formatter = log.JSONFormatter
	case FormatLogfmt:
		formatter = log.LogfmtFormatter
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           lvl,
		Formatter:       formatter,
	})

	baseMu.Lock()
	base = logger
	baseMu.Unlock()
	return nil
}

func currentBase() *log.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

// componentLogger resolves the shared sink on every call so package level
// loggers follow ConfigureLogging.
type componentLogger struct {
	component string
	keyvals   []interface{}
}

// NewLogger creates a logger without a component prefix.
func NewLogger() Logger {
	return &componentLogger{}
}

// NewComponentLogger creates a logger whose records carry the component
// name as prefix.
func NewComponentLogger(component string) Logger {
	return &componentLogger{component: component}
}

func (l *componentLogger) logger() *log.Logger {
	lg := currentBase()
	if l.component != "" {
		lg = lg.WithPrefix(l.component)
	}
	if len(l.keyvals) > 0 {
		lg = lg.With(l.keyvals...)
	}
	return lg
}

func (l *componentLogger) Debug(msg string) {
	l.logger().Debug(msg)
}

func (l *componentLogger) Debugf(format string, args ...interface{}) {
	l.logger().Debugf(format, args...)
}

func (l *componentLogger) Info(msg string) {
	l.logger().Info(msg)
}

func (l *componentLogger) Infof(format string, args ...interface{}) {
	l.logger().Infof(format, args...)
}

func (l *componentLogger) Warn(msg string) {
	l.logger().Warn(msg)
}

func (l *componentLogger) Warnf(format string, args ...interface{}) {
	l.logger().Warnf(format, args...)
}

func (l *componentLogger) Error(msg string) {
	l.logger().Error(msg)
}

func (l *componentLogger) Errorf(format string, args ...interface{}) {
	l.logger().Errorf(format, args...)
}

func (l *componentLogger) WithField(key string, value interface{}) Logger {
	keyvals := make([]interface{}, 0, len(l.keyvals)+2)
	keyvals = append(keyvals, l.keyvals...)
	keyvals = append(keyvals, key, value)
	return &componentLogger{component: l.component, keyvals: keyvals}
}

func (l *componentLogger) WithFields(fields map[string]interface{}) Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	keyvals := make([]interface{}, 0, len(l.keyvals)+2*len(fields))
	keyvals = append(keyvals, l.keyvals...)
	for _, k := range keys {
		keyvals = append(keyvals, k, fields[k])
	}
	return &componentLogger{component: l.component, keyvals: keyvals}
}

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

func (NopLogger) Debug(string) {}
func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Info(string) {}
func (NopLogger) Infof(string, ...interface{}) {}
func (NopLogger) Warn(string) {}
func (NopLogger) Warnf(string, ...interface{}) {}
func (NopLogger) Error(string) {}
func (NopLogger) Errorf(string, ...interface{}) {}
func (n NopLogger) WithField(string, interface{}) Logger { return n }
func (n NopLogger) WithFields(map[string]interface{}) Logger { return n }
