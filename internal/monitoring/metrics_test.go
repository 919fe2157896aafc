// internal/monitoring/metrics_test.go
package monitoring

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/valpere/crosslink/internal/engine"
	"github.com/valpere/crosslink/internal/rules"
)

// MetricsManager must satisfy the engine's observer contract.
var _ engine.Recorder = (*MetricsManager)(nil)

func TestNewMetricsManager_IndependentRegistries(t *testing.T) {
	// Two managers in one process must not collide on registration.
	first := NewMetricsManager(MetricsConfig{})
	second := NewMetricsManager(MetricsConfig{})

	first.RecordInvalidation("all")

	if got := testutil.ToFloat64(first.cacheInvalidations.WithLabelValues("all")); got != 1 {
		t.Errorf("Expected 1 invalidation on first manager, got %v", got)
	}
	if got := testutil.ToFloat64(second.cacheInvalidations.WithLabelValues("all")); got != 0 {
		t.Errorf("Expected 0 invalidations on second manager, got %v", got)
	}
}

func TestMetricsManager_RecordEvaluation(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.RecordEvaluation(engine.OutcomeMatch, 2*time.Millisecond)
	mm.RecordEvaluation(engine.OutcomeMatch, 3*time.Millisecond)
	mm.RecordEvaluation(engine.OutcomeNoMatch, time.Millisecond)

	if got := testutil.ToFloat64(mm.evaluationsTotal.WithLabelValues(engine.OutcomeMatch)); got != 2 {
		t.Errorf("Expected 2 matches, got %v", got)
	}
	if got := testutil.ToFloat64(mm.evaluationsTotal.WithLabelValues(engine.OutcomeNoMatch)); got != 1 {
		t.Errorf("Expected 1 no_match, got %v", got)
	}
	if count := testutil.CollectAndCount(mm.evaluationDuration); count != 2 {
		t.Errorf("Expected 2 duration series, got %d", count)
	}
}

func TestMetricsManager_RecordMatch(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.RecordMatch("javdb", []rules.BuiltLink{
		{TargetSiteID: "avbase"},
		{TargetSiteID: "missav"},
	})
	mm.RecordMatch("javdb", nil)

	if got := testutil.ToFloat64(mm.profileMatches.WithLabelValues("javdb")); got != 2 {
		t.Errorf("Expected 2 profile matches, got %v", got)
	}
	if got := testutil.ToFloat64(mm.linksBuilt.WithLabelValues("javdb", "avbase")); got != 1 {
		t.Errorf("Expected 1 link to avbase, got %v", got)
	}
}

func TestMetricsManager_SetRulesLoaded(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{})

	mm.SetRulesLoaded(7)
	mm.SetRulesLoaded(3)

	if got := testutil.ToFloat64(mm.rulesLoaded); got != 3 {
		t.Errorf("Expected gauge 3, got %v", got)
	}
}

func TestMetricsManager_Handler(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Namespace: "test", EnableGoMetrics: true})
	mm.RecordRequest("GET", "/health", 200, time.Millisecond)
	mm.RecordRateLimitHit("/api/v1/evaluate")
	mm.RecordSnapshot(false, time.Second)

	rec := httptest.NewRecorder()
	mm.MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`test_http_requests_total{method="GET",route="/health",status_code="200"} 1`,
		`test_rate_limit_hits_total{route="/api/v1/evaluate"} 1`,
		`test_browser_snapshots_total{status="error"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}
