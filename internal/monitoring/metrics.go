// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/crosslink/internal/rules"
)

// MetricsManager manages Prometheus metrics for crosslink. Each manager
// owns its registry so several can coexist in one process.
type MetricsManager struct {
	registry *prometheus.Registry

	// Evaluation metrics
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	profileMatches     *prometheus.CounterVec
	linksBuilt         *prometheus.CounterVec

	// Rule set metrics
	rulesLoaded        prometheus.Gauge
	cacheInvalidations *prometheus.CounterVec

	// HTTP metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rateLimitHits   *prometheus.CounterVec

	// Renderer metrics
	snapshotsTotal   *prometheus.CounterVec
	snapshotDuration prometheus.Histogram

	namespace string
	subsystem string
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace            string `json:"namespace"`
	Subsystem            string `json:"subsystem"`
	EnableGoMetrics      bool   `json:"enable_go_metrics"`
	EnableProcessMetrics bool   `json:"enable_process_metrics"`
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "crosslink"
	}

	mm := &MetricsManager{
		registry:  prometheus.NewRegistry(),
		namespace: config.Namespace,
		subsystem: config.Subsystem,
	}

	if config.EnableGoMetrics {
		mm.registry.MustRegister(collectors.NewGoCollector())
	}
	if config.EnableProcessMetrics {
		mm.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	mm.initializeMetrics()

	return mm
}

// initializeMetrics initializes all Prometheus metrics
func (mm *MetricsManager) initializeMetrics() {
	factory := promauto.With(mm.registry)

	mm.evaluationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "evaluations_total",
			Help:      "Total number of page evaluations by outcome",
		},
		[]string{"outcome"},
	)

	mm.evaluationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "evaluation_duration_seconds",
			Help:      "Page evaluation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"outcome"},
	)

	mm.profileMatches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "profile_matches_total",
			Help:      "Total number of evaluations claimed by each site profile",
		},
		[]string{"profile"},
	)

	mm.linksBuilt = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "links_built_total",
			Help:      "Total number of cross-site links built",
		},
		[]string{"source", "target"},
	)

	mm.rulesLoaded = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "rules_loaded",
			Help:      "Number of site profiles in the active rule set",
		},
	)

	mm.cacheInvalidations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "cache_invalidations_total",
			Help:      "Total number of result cache invalidations by scope",
		},
		[]string{"scope"},
	)

	mm.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of API requests served",
		},
		[]string{"method", "route", "status_code"},
	)

	mm.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	mm.rateLimitHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of API requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	mm.snapshotsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "browser_snapshots_total",
			Help:      "Total number of rendered page snapshots by status",
		},
		[]string{"status"},
	)

	mm.snapshotDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: mm.namespace,
			Subsystem: mm.subsystem,
			Name:      "browser_snapshot_duration_seconds",
			Help:      "Rendered page snapshot duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
	)
}

// Evaluation metrics
func (mm *MetricsManager) RecordEvaluation(outcome string, duration time.Duration) {
	mm.evaluationsTotal.WithLabelValues(outcome).Inc()
	mm.evaluationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (mm *MetricsManager) RecordMatch(profileID string, links []rules.BuiltLink) {
	mm.profileMatches.WithLabelValues(profileID).Inc()
	for _, link := range links {
		mm.linksBuilt.WithLabelValues(profileID, link.TargetSiteID).Inc()
	}
}

// Rule set metrics
func (mm *MetricsManager) RecordInvalidation(scope string) {
	mm.cacheInvalidations.WithLabelValues(scope).Inc()
}

func (mm *MetricsManager) SetRulesLoaded(count int) {
	mm.rulesLoaded.Set(float64(count))
}

// HTTP metrics
func (mm *MetricsManager) RecordRequest(method, route string, statusCode int, duration time.Duration) {
	mm.requestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	mm.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (mm *MetricsManager) RecordRateLimitHit(route string) {
	mm.rateLimitHits.WithLabelValues(route).Inc()
}

// Renderer metrics
func (mm *MetricsManager) RecordSnapshot(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	mm.snapshotsTotal.WithLabelValues(status).Inc()
	mm.snapshotDuration.Observe(duration.Seconds())
}

// Registry returns the registry the metrics are registered with.
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// MetricsHandler returns an HTTP handler for metrics endpoint
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{Registry: mm.registry})
}
