// Package metrics provides Prometheus metrics for skillsprint.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg prometheus.Gatherer

	// Structuring
	DocumentsStructured *prometheus.CounterVec
	StructureFailures   *prometheus.CounterVec
	StructureDuration   *prometheus.HistogramVec
	ValidationRejected  *prometheus.CounterVec
	QueueDepth          prometheus.Gauge

	// Generation
	GenerationRequests *prometheus.CounterVec
	GenerationInFlight *prometheus.GaugeVec
	GenerationDuration *prometheus.HistogramVec
	ReviewSessions     prometheus.Gauge

	// HTTP
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors with reg. Pass prometheus.NewRegistry() in
// tests to keep registrations isolated.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	m := &Metrics{reg: reg}

	m.DocumentsStructured = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillsprint_documents_structured_total",
			Help: "Documents turned into lessons, by source format and extraction kind",
		},
		[]string{"format", "extraction"},
	)
	m.StructureFailures = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillsprint_structure_failures_total",
			Help: "Structuring attempts that produced no document, by error class",
		},
		[]string{"reason"},
	)
	m.StructureDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillsprint_structure_duration_seconds",
			Help:    "Time to decode and classify a whole document",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"format"},
	)
	m.ValidationRejected = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillsprint_validation_rejections_total",
			Help: "Uploads rejected before decoding, by reason",
		},
		[]string{"reason"},
	)
	m.QueueDepth = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "skillsprint_job_queue_depth",
			Help: "Structuring jobs waiting for a worker",
		},
	)

	m.GenerationRequests = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillsprint_generation_requests_total",
			Help: "Generation requests by artifact kind and outcome (ready, empty, failed)",
		},
		[]string{"kind", "outcome"},
	)
	m.GenerationInFlight = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skillsprint_generation_in_flight",
			Help: "Generation requests currently outstanding",
		},
		[]string{"kind"},
	)
	m.GenerationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillsprint_generation_duration_seconds",
			Help:    "Duration of generation requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 45, 90},
		},
		[]string{"kind"},
	)
	m.ReviewSessions = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "skillsprint_review_sessions",
			Help: "Open review sessions",
		},
	)

	m.HTTPRequests = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillsprint_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"route", "status"},
	)
	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillsprint_http_request_duration_seconds",
			Help:    "HTTP request duration by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveStructure records a successfully structured document.
func (m *Metrics) ObserveStructure(format, extraction string, d time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsStructured.WithLabelValues(format, extraction).Inc()
	m.StructureDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) StructureFailed(reason string) {
	if m == nil {
		return
	}
	m.StructureFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.ValidationRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// GenerationStarted marks a request as outstanding. Pair every call with
// GenerationFinished.
func (m *Metrics) GenerationStarted(kind string) {
	if m == nil {
		return
	}
	m.GenerationInFlight.WithLabelValues(kind).Inc()
}

func (m *Metrics) GenerationFinished(kind, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationInFlight.WithLabelValues(kind).Dec()
	m.GenerationRequests.WithLabelValues(kind, outcome).Inc()
	m.GenerationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.ReviewSessions.Set(float64(n))
}

func (m *Metrics) HTTPRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}
