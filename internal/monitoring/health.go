// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// HealthCheck checks one named dependency.
type HealthCheck struct {
	Name      string
	Critical  bool
	Timeout   time.Duration
	CheckFunc func(ctx context.Context) HealthCheckResult
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status   HealthStatus           `json:"status"`
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Critical bool                   `json:"critical"`
	Duration time.Duration          `json:"duration"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SystemHealth represents overall system health information
type SystemHealth struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version,omitempty"`
	Uptime    string                       `json:"uptime"`
	Checks    map[string]HealthCheckResult `json:"checks,omitempty"`
}

// HealthManager runs registered checks on demand.
type HealthManager struct {
	mu             sync.RWMutex
	checks         map[string]*HealthCheck
	defaultTimeout time.Duration
	version        string
	started        time.Time
	now            func() time.Time
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:         make(map[string]*HealthCheck),
		defaultTimeout: 5 * time.Second,
		version:        version,
		started:        time.Now(),
		now:            time.Now,
	}
}

// RegisterCheck registers a new health check, replacing one with the same name.
func (hm *HealthManager) RegisterCheck(check *HealthCheck) {
	if check == nil || check.Name == "" {
		return
	}
	if check.Timeout == 0 {
		check.Timeout = hm.defaultTimeout
	}

	hm.mu.Lock()
	hm.checks[check.Name] = check
	hm.mu.Unlock()
}

// RemoveCheck removes a health check
func (hm *HealthManager) RemoveCheck(name string) {
	hm.mu.Lock()
	delete(hm.checks, name)
	hm.mu.Unlock()
}

// GetHealth runs every check concurrently and aggregates the results. A
// failed critical check makes the whole system unhealthy; any other
// failure degrades it.
func (hm *HealthManager) GetHealth(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		checks = append(checks, check)
	}
	hm.mu.RUnlock()
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	results := make([]HealthCheckResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, c *HealthCheck) {
			defer wg.Done()
			results[i] = runCheck(ctx, c)
		}(i, check)
	}
	wg.Wait()

	health := SystemHealth{
		Status:    HealthStatusHealthy,
		Timestamp: hm.now(),
		Version:   hm.version,
		Uptime:    time.Since(hm.started).Round(time.Second).String(),
		Checks:    make(map[string]HealthCheckResult, len(checks)),
	}

	for i, check := range checks {
		result := results[i]
		health.Checks[check.Name] = result

		switch result.Status {
		case HealthStatusHealthy:
		case HealthStatusUnhealthy:
			if check.Critical {
				health.Status = HealthStatusUnhealthy
			} else if health.Status == HealthStatusHealthy {
				health.Status = HealthStatusDegraded
			}
		default:
			if health.Status == HealthStatusHealthy {
				health.Status = HealthStatusDegraded
			}
		}
	}

	return health
}

func runCheck(ctx context.Context, check *HealthCheck) HealthCheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	var result HealthCheckResult
	if check.CheckFunc != nil {
		result = check.CheckFunc(checkCtx)
	} else {
		result = HealthCheckResult{
			Status:  HealthStatusUnknown,
			Message: "No check function defined",
		}
	}

	result.Critical = check.Critical
	result.Duration = time.Since(start)
	return result
}

// HealthHandler serves the aggregated health as JSON. Unhealthy answers
// 503; degraded still answers 200.
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		json.NewEncoder(w).Encode(health)
	}
}

// RuleStoreHealthCheck checks that the rule backend answers.
func RuleStoreHealthCheck(name string, checkFunc func(ctx context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:     name,
		Critical: true,
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			if err := checkFunc(ctx); err != nil {
				return HealthCheckResult{
					Status:  HealthStatusUnhealthy,
					Message: "Rule store unreachable",
					Error:   err.Error(),
				}
			}
			return HealthCheckResult{
				Status:  HealthStatusHealthy,
				Message: "Rule store reachable",
			}
		},
	}
}

// RulesLoadedHealthCheck reports whether the engine holds a rule set.
// An engine that has not loaded yet is degraded, not down: it loads on
// the first evaluation.
func RulesLoadedHealthCheck(loaded func() bool, count func() int) *HealthCheck {
	return &HealthCheck{
		Name: "rules",
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			if !loaded() {
				return HealthCheckResult{
					Status:  HealthStatusDegraded,
					Message: "Rule set not loaded yet",
				}
			}
			n := count()
			return HealthCheckResult{
				Status:   HealthStatusHealthy,
				Message:  fmt.Sprintf("%d site profiles loaded", n),
				Metadata: map[string]interface{}{"profiles": n},
			}
		},
	}
}

// GoroutineHealthCheck creates a goroutine count health check
func GoroutineHealthCheck(maxGoroutines int) *HealthCheck {
	return &HealthCheck{
		Name: "goroutines",
		CheckFunc: func(ctx context.Context) HealthCheckResult {
			count := runtime.NumGoroutine()

			metadata := map[string]interface{}{
				"goroutine_count": count,
				"max_allowed":     maxGoroutines,
			}

			if count > maxGoroutines {
				return HealthCheckResult{
					Status:   HealthStatusDegraded,
					Message:  fmt.Sprintf("High goroutine count: %d", count),
					Metadata: metadata,
				}
			}

			return HealthCheckResult{
				Status:   HealthStatusHealthy,
				Message:  fmt.Sprintf("Goroutine count normal: %d", count),
				Metadata: metadata,
			}
		},
	}
}
