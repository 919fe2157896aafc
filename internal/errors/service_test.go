// internal/errors/service_test.go
package errors

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/valpere/crosslink/internal/rules"
)

func fastService() *Service {
	s := NewService().WithRetryConfig(RetryConfig{
		MaxRetries:    3,
		BaseDelay:     time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      5 * time.Millisecond,
	})
	return s
}

func TestService_ExecuteWithRetry_Success(t *testing.T) {
	service := fastService()

	calls := 0
	err := service.ExecuteWithRetry(context.Background(), func() error {
		calls++
		return nil
	}, "load")

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 attempt, got %d", calls)
	}
}

func TestService_ExecuteWithRetry_EventualSuccess(t *testing.T) {
	service := fastService()

	calls := 0
	err := service.ExecuteWithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("dial tcp: connection refused")
		}
		return nil
	}, "load")

	if err != nil {
		t.Fatalf("Expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestService_ExecuteWithRetry_Exhausted(t *testing.T) {
	service := fastService()

	calls := 0
	err := service.ExecuteWithRetry(context.Background(), func() error {
		calls++
		return fmt.Errorf("i/o timeout")
	}, "load")

	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if calls != 4 {
		t.Errorf("Expected 4 attempts, got %d", calls)
	}
	if !strings.Contains(err.Error(), "after 4 attempts") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestService_ExecuteWithRetry_NonRetryable(t *testing.T) {
	service := fastService()

	calls := 0
	err := service.ExecuteWithRetry(context.Background(), func() error {
		calls++
		return fmt.Errorf("permission denied")
	}, "save")

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected no retries for permanent error, got %d attempts", calls)
	}
}

func TestService_ExecuteWithRetry_ContextCancelled(t *testing.T) {
	service := NewService().WithRetryConfig(RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, BackoffFactor: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := service.ExecuteWithRetry(ctx, func() error {
		return fmt.Errorf("service unavailable")
	}, "load")

	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestService_CalculateDelay(t *testing.T) {
	service := NewService().WithRetryConfig(RetryConfig{
		MaxRetries:    5,
		BaseDelay:     100 * time.Millisecond,
		BackoffFactor: 2,
		MaxDelay:      300 * time.Millisecond,
	})

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 300 * time.Millisecond},
		{5, 300 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := service.calculateDelay(tt.attempt); got != tt.expected {
			t.Errorf("calculateDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("load: %w", context.DeadlineExceeded), true},
		{"canceled", context.Canceled, false},
		{"connection refused", fmt.Errorf("dial tcp 127.0.0.1:5432: connect: connection refused"), true},
		{"sqlite busy", fmt.Errorf("database is locked"), true},
		{"validation", rules.ValidationErrors{{Kind: rules.KindMissingField}}, false},
		{"permanent", fmt.Errorf("no such table"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func decodeError(t *testing.T, input string) error {
	t.Helper()
	_, err := rules.Decode([]byte(input))
	if err == nil {
		t.Fatalf("Expected %q to fail decoding", input)
	}
	return err
}

func TestService_GetExitCode(t *testing.T) {
	service := NewService()
	validation := rules.ValidationErrors{{Kind: rules.KindInvalidRegex, SiteID: "javdb", Message: "bad"}}

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitOK},
		{"validation", fmt.Errorf("save rules: %w", validation), ExitValidation},
		{"config", fmt.Errorf("failed to parse config file: yaml: line 3"), ExitConfig},
		{"parse", fmt.Errorf("failed to decode rules: invalid character"), ExitParse},
		{"backend", fmt.Errorf("dial tcp: connection refused"), ExitBackend},
		{"general", fmt.Errorf("something odd"), ExitGeneral},
		{"malformed yaml rules", decodeError(t, "{not: [valid"), ExitParse},
		{"malformed json rules", decodeError(t, "[{"), ExitParse},
		{"wrapped malformed rules", fmt.Errorf("unreadable rule set: %w", decodeError(t, "- id: [")), ExitParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := service.GetExitCode(tt.err); got != tt.expected {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestService_FormatErrorForCLI(t *testing.T) {
	validation := rules.ValidationErrors{
		{Kind: rules.KindDuplicateKeyword, SiteID: "second", Message: "keyword \"javbus\" already claimed by \"first\""},
		{Kind: rules.KindMissingField, SiteID: "second", Message: "entry point requires urlTemplate"},
	}

	output := NewService().FormatErrorForCLI(fmt.Errorf("import: %w", validation))
	if !strings.Contains(output, "Invalid Rules") {
		t.Errorf("Expected title in output, got %q", output)
	}
	if !strings.Contains(output, "2 problem(s)") {
		t.Errorf("Expected problem count, got %q", output)
	}
	for _, v := range validation {
		if !strings.Contains(output, v.Message) {
			t.Errorf("Expected every validation error listed, missing %q", v.Message)
		}
	}
	if strings.Contains(output, "Technical details") {
		t.Error("Expected technical details hidden by default")
	}

	verbose := NewService().WithVerbose(true).FormatErrorForCLI(fmt.Errorf("something odd"))
	if !strings.Contains(verbose, "Technical details: something odd") {
		t.Errorf("Expected technical details in verbose mode, got %q", verbose)
	}
}

func TestService_MalformedRulesAreParseErrors(t *testing.T) {
	title, _, _ := NewService().GetUserFriendlyError(decodeError(t, "{not: [valid"))
	if title != "Parse Error" {
		t.Errorf("Expected a parse error title for malformed YAML rules, got %q", title)
	}
}
