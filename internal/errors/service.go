// internal/errors/service.go - Retry and CLI error reporting service
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/valpere/crosslink/internal/rules"
)

// Exit codes returned by the CLI.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitConfig     = 2
	ExitBackend    = 3
	ExitParse      = 4
	ExitValidation = 6
)

// Service provides retry and error presentation capabilities
type Service struct {
	retryConfig    RetryConfig
	messageHandler *MessageHandler
	sleep          func(ctx context.Context, d time.Duration) error
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	BaseDelay     time.Duration `yaml:"base_delay" json:"base_delay"`
	BackoffFactor float64       `yaml:"backoff_factor" json:"backoff_factor"`
	MaxDelay      time.Duration `yaml:"max_delay" json:"max_delay"`
}

// MessageHandler converts technical errors to user-friendly messages
type MessageHandler struct {
	showTechnical bool
}

// NewService creates a new error service
func NewService() *Service {
	return &Service{
		retryConfig: RetryConfig{
			MaxRetries:    3,
			BaseDelay:     500 * time.Millisecond,
			BackoffFactor: 2.0,
			MaxDelay:      10 * time.Second,
		},
		messageHandler: &MessageHandler{showTechnical: false},
		sleep:          sleepContext,
	}
}

// WithVerbose enables technical error details
func (s *Service) WithVerbose(verbose bool) *Service {
	s.messageHandler.showTechnical = verbose
	return s
}

// WithRetryConfig replaces the retry policy
func (s *Service) WithRetryConfig(cfg RetryConfig) *Service {
	s.retryConfig = cfg
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ExecuteWithRetry runs operation until it succeeds, fails with a
// non-retryable error, or the retry budget is exhausted.
func (s *Service) ExecuteWithRetry(ctx context.Context, operation func() error, operationName string) error {
	var lastErr error

	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !s.shouldRetry(err, attempt) {
			return fmt.Errorf("operation %s failed: %w", operationName, lastErr)
		}

		if err := s.sleep(ctx, s.calculateDelay(attempt)); err != nil {
			return err
		}
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operationName, s.retryConfig.MaxRetries+1, lastErr)
}

// IsRetryable reports whether err looks transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	var validation rules.ValidationErrors
	if stderrors.As(err, &validation) {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryableErrors := []string{
		"timeout", "connection refused", "connection reset", "no such host",
		"server selection", "database is locked", "too many connections",
		"temporary", "service unavailable",
	}
	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}

// shouldRetry determines if error is retryable
func (s *Service) shouldRetry(err error, attempt int) bool {
	if attempt >= s.retryConfig.MaxRetries {
		return false
	}
	return IsRetryable(err)
}

// calculateDelay computes exponential backoff delay
func (s *Service) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(s.retryConfig.BaseDelay) * math.Pow(s.retryConfig.BackoffFactor, float64(attempt)))
	if s.retryConfig.MaxDelay > 0 && delay > s.retryConfig.MaxDelay {
		delay = s.retryConfig.MaxDelay
	}
	return delay
}

// GetUserFriendlyError converts technical errors to user-friendly messages
func (s *Service) GetUserFriendlyError(err error) (title, message string, suggestions []string) {
	if err == nil {
		return "", "", nil
	}

	var validation rules.ValidationErrors
	if stderrors.As(err, &validation) {
		suggestions = make([]string, 0, len(validation))
		for _, v := range validation {
			suggestions = append(suggestions, v.Error())
		}
		return "Invalid Rules",
			fmt.Sprintf("The rule set was rejected with %d problem(s); nothing was saved.", len(validation)),
			suggestions
	}

	if stderrors.Is(err, rules.ErrMalformed) {
		return parseErrorMessage()
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "yaml") || strings.Contains(errStr, "config") {
		return "Configuration Error",
			"The configuration could not be loaded.",
			[]string{
				"Check YAML indentation (use spaces, not tabs)",
				"Verify environment variables referenced as ${VAR} are set",
				"Run 'crosslink validate' on the rule file",
			}
	}

	if strings.Contains(errStr, "json") || strings.Contains(errStr, "parse") || strings.Contains(errStr, "decode") {
		return parseErrorMessage()
	}

	if IsRetryable(err) || strings.Contains(errStr, "backend") || strings.Contains(errStr, "connect") {
		return "Rule Backend Unavailable",
			"The rule storage backend could not be reached.",
			[]string{
				"Check the rules.dsn setting",
				"Verify the database server is running",
				"Fall back to the file backend with rules.backend: file",
			}
	}

	return "Unexpected Error",
		"An unexpected error occurred during the operation.",
		[]string{
			"Try running the command again with --verbose",
			"Check your configuration file",
		}
}

func parseErrorMessage() (title, message string, suggestions []string) {
	return "Parse Error",
		"The input could not be parsed.",
		[]string{
			"Rule files must contain a JSON array or a YAML list of profiles",
			"Check that the file is UTF-8 encoded",
		}
}

// GetExitCode returns appropriate exit code for error
func (s *Service) GetExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var validation rules.ValidationErrors
	if stderrors.As(err, &validation) {
		return ExitValidation
	}
	if stderrors.Is(err, rules.ErrMalformed) {
		return ExitParse
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "config") || strings.Contains(errStr, "yaml"):
		return ExitConfig
	case strings.Contains(errStr, "parse") || strings.Contains(errStr, "decode") || strings.Contains(errStr, "json"):
		return ExitParse
	case IsRetryable(err) || strings.Contains(errStr, "backend") || strings.Contains(errStr, "connect"):
		return ExitBackend
	case strings.Contains(errStr, "validation"):
		return ExitValidation
	default:
		return ExitGeneral
	}
}

// FormatErrorForCLI formats error for command-line display
func (s *Service) FormatErrorForCLI(err error) string {
	title, message, suggestions := s.GetUserFriendlyError(err)

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n%s\n", title, message)

	if s.messageHandler.showTechnical {
		fmt.Fprintf(&b, "\nTechnical details: %s\n", err.Error())
	}

	if len(suggestions) > 0 {
		b.WriteString("\n")
		for _, suggestion := range suggestions {
			fmt.Fprintf(&b, "  - %s\n", suggestion)
		}
	}

	return b.String()
}
