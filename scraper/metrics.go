package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	PagesTotal       prometheus.Counter
	OutcomesTotal    *prometheus.CounterVec
	DuplicatesTotal  prometheus.Counter
	CheckpointsTotal prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perpus_requests_total",
			Help: "Total HTTP requests issued by the crawler.",
		},
		[]string{"kind"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "perpus_request_duration_seconds",
			Help:    "HTTP request latency for crawler requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "perpus_listing_pages_total",
			Help: "Total listing pages processed.",
		},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perpus_item_outcomes_total",
			Help: "Listing items resolved, by outcome.",
		},
		[]string{"outcome"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "perpus_duplicates_total",
			Help: "Listing items skipped because their URL was already collected.",
		},
	)
	checkpoints := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "perpus_checkpoints_total",
			Help: "Progress checkpoints written.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "perpus_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, pages, outcomes, duplicates, checkpoints, errorsTotal)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		PagesTotal:       pages,
		OutcomesTotal:    outcomes,
		DuplicatesTotal:  duplicates,
		CheckpointsTotal: checkpoints,
		ErrorsTotal:      errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(kind string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(kind).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncPages increments the listing page counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
}

// IncOutcome counts one resolved item.
func (m *Metrics) IncOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(o.String()).Inc()
}

// IncDuplicates increments the duplicate counter.
func (m *Metrics) IncDuplicates() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}

// IncCheckpoints increments the checkpoint counter.
func (m *Metrics) IncCheckpoints() {
	if m == nil {
		return
	}
	m.CheckpointsTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
