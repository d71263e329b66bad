package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	PagesFetched  prometheus.Counter
	FetchFailures prometheus.Counter
	RowsParsed    prometheus.Counter
	RowsInserted  prometheus.Counter

	// Walk metrics.
	PageRows     prometheus.Histogram
	WalkDuration prometheus.Histogram
	WalkRunning  prometheus.Gauge

	// Daemon refresh metrics.
	BreakerOpen prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "pages_fetched_total",
			Help:      "Total monthly bulk pages fetched successfully.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "fetch_failures_total",
			Help:      "Total fetch attempts that returned a transient failure.",
		}),
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "rows_parsed_total",
			Help:      "Total daily observations parsed out of fetched pages.",
		}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "climate_ingest",
			Name:      "rows_inserted_total",
			Help:      "Total net-new rows written to storage (duplicates excluded).",
		}),
		PageRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_ingest",
			Name:      "page_rows",
			Help:      "Daily observations parsed per monthly page.",
			Buckets:   []float64{0, 5, 10, 15, 20, 25, 28, 31},
		}),
		WalkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "climate_ingest",
			Name:      "walk_duration_seconds",
			Help:      "Duration of a complete backward walk.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		WalkRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_ingest",
			Name:      "walk_running",
			Help:      "1 while a backward walk is in progress, 0 otherwise.",
		}),
		BreakerOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_ingest",
			Name:      "refresh_breaker_open",
			Help:      "1 when the refresh circuit breaker is open, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.PagesFetched,
		m.FetchFailures,
		m.RowsParsed,
		m.RowsInserted,
		m.PageRows,
		m.WalkDuration,
		m.WalkRunning,
		m.BreakerOpen,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PagesFetched:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_ingest", Name: "pages_fetched_total"}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_ingest", Name: "fetch_failures_total"}),
		RowsParsed:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_ingest", Name: "rows_parsed_total"}),
		RowsInserted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "climate_ingest", Name: "rows_inserted_total"}),
		PageRows:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_ingest", Name: "page_rows"}),
		WalkDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "climate_ingest", Name: "walk_duration_seconds"}),
		WalkRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_ingest", Name: "walk_running"}),
		BreakerOpen:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "climate_ingest", Name: "refresh_breaker_open"}),
	}
}
