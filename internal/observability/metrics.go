package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Load metrics.
	Loads        *prometheus.CounterVec // labels: outcome={success,not_found,parse_error,empty,error}
	LoadDuration prometheus.Histogram
	RowsDropped  *prometheus.CounterVec // labels: reason={invalid_timestamp,outside_window,invalid_coordinates}
	DatasetRows  prometheus.Gauge

	// Cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}

	// Presentation metrics.
	ViewsRendered prometheus.Counter
	ViewRows      prometheus.Histogram

	// Record feed metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Loads,
		m.LoadDuration,
		m.RowsDropped,
		m.DatasetRows,
		m.CacheLookups,
		m.ViewsRendered,
		m.ViewRows,
		m.RecordsPublished,
		m.PublishErrors,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics that are not exported anywhere, for
// one-shot tools that run the pipeline without serving /metrics.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accident_dashboard",
			Name:      "loads_total",
			Help:      "Dataset loads by outcome.",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "accident_dashboard",
			Name:      "load_duration_seconds",
			Help:      "Duration of a full read-clean-window load.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accident_dashboard",
			Name:      "rows_dropped_total",
			Help:      "Source rows excluded during cleaning, by reason.",
		}, []string{"reason"}),
		DatasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "accident_dashboard",
			Name:      "dataset_rows",
			Help:      "Records retained by the most recent successful load.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accident_dashboard",
			Name:      "cache_lookups_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		ViewsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accident_dashboard",
			Name:      "views_rendered_total",
			Help:      "Filtered views computed for dashboard requests.",
		}),
		ViewRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "accident_dashboard",
			Name:      "view_rows",
			Help:      "Number of records in each filtered view.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accident_dashboard",
			Name:      "records_published_total",
			Help:      "Cleaned records written to the record feed topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "accident_dashboard",
			Name:      "publish_errors_total",
			Help:      "Failed record feed publish attempts.",
		}),
	}
}
