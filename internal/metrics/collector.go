// Package metrics exposes Prometheus instrumentation for the scene backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector owns a private registry so several collectors can coexist in one
// process (tests, embedded servers). All Record methods accept a nil receiver.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	operationsApplied  *prometheus.CounterVec
	diagnostics        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	previewTransitions *prometheus.CounterVec

	sessionsActive prometheus.Gauge
	importJobs     *prometheus.CounterVec

	visionRequests        *prometheus.CounterVec
	visionRequestDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector registers every metric under namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.operationsApplied = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_operations_applied_total",
			Help:      "Scene operations applied, by action",
		},
		[]string{"action"},
	)

	c.diagnostics = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_operation_diagnostics_total",
			Help:      "Operations skipped with a diagnostic, by kind",
		},
		[]string{"kind"},
	)

	c.validationFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_validation_failures_total",
			Help:      "Rejected scene documents, by error kind",
		},
		[]string{"kind"},
	)

	c.previewTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scene_preview_transitions_total",
			Help:      "Preview state machine transitions",
		},
		[]string{"transition"},
	)

	c.sessionsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "editing_sessions_active",
			Help:      "Number of live editing sessions",
		},
	)

	c.importJobs = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "floorplan_import_jobs_total",
			Help:      "Finished floor-plan import jobs, by outcome",
		},
		[]string{"outcome"},
	)

	c.visionRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vision_requests_total",
			Help:      "Model requests, by task and status",
		},
		[]string{"task", "status"},
	)

	c.visionRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vision_request_duration_seconds",
			Help:      "Model request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"task"},
	)

	return c
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOperation counts an applied operation.
func (c *Collector) RecordOperation(action string) {
	if c == nil {
		return
	}
	c.operationsApplied.WithLabelValues(action).Inc()
}

// RecordDiagnostic counts a skipped operation.
func (c *Collector) RecordDiagnostic(kind string) {
	if c == nil {
		return
	}
	c.diagnostics.WithLabelValues(kind).Inc()
}

// RecordValidationFailure counts a rejected document.
func (c *Collector) RecordValidationFailure(kind string) {
	if c == nil {
		return
	}
	c.validationFailures.WithLabelValues(kind).Inc()
}

// RecordPreviewTransition counts set, commit and cancel transitions.
func (c *Collector) RecordPreviewTransition(transition string) {
	if c == nil {
		return
	}
	c.previewTransitions.WithLabelValues(transition).Inc()
}

// SetActiveSessions reports the registry size.
func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.sessionsActive.Set(float64(n))
}

// RecordImportJob counts a finished import job.
func (c *Collector) RecordImportJob(outcome string) {
	if c == nil {
		return
	}
	c.importJobs.WithLabelValues(outcome).Inc()
}

// RecordVisionRequest records one model round trip.
func (c *Collector) RecordVisionRequest(task, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.visionRequests.WithLabelValues(task, status).Inc()
	c.visionRequestDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// statusCode buckets an HTTP status code into its class.
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
