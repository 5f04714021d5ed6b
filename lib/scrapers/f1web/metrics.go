package f1web

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the website scraper.
type Metrics struct {
	Registry        *prometheus.Registry
	PagesTotal      *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	RetriesTotal    prometheus.Counter
	RoundsExtracted prometheus.Counter
	FailuresTotal   *prometheus.CounterVec
}

// NewMetrics constructs and registers all collectors on a dedicated
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "f1web_pages_total",
			Help: "Total pages fetched from the event website by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "f1web_fetch_duration_seconds",
			Help:    "Latency of page fetches against the event website.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "f1web_fetch_retries_total",
			Help: "Total retry attempts issued against the event website.",
		},
	)
	rounds := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "f1web_rounds_extracted_total",
			Help: "Total rounds that passed the completeness gate.",
		},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "f1web_failures_total",
			Help: "Total extraction failures by kind.",
		},
		[]string{"kind"},
	)

	registry.MustRegister(pages, fetchDuration, retries, rounds, failures)

	return &Metrics{
		Registry:        registry,
		PagesTotal:      pages,
		FetchDuration:   fetchDuration,
		RetriesTotal:    retries,
		RoundsExtracted: rounds,
		FailuresTotal:   failures,
	}
}

func (m *Metrics) IncPage(outcome string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

func (m *Metrics) IncRounds() {
	if m == nil {
		return
	}
	m.RoundsExtracted.Inc()
}

func (m *Metrics) IncFailure(kind string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(kind).Inc()
}
