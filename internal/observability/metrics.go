package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// exposure engine and its adapters.
type Metrics struct {
	QueriesTotal  *prometheus.CounterVec   // labels: metric, scope={county,community}, outcome={ok,empty,error}
	QueryDuration *prometheus.HistogramVec // labels: metric
	RowsReturned  prometheus.Histogram

	CatalogRecords *prometheus.GaugeVec // labels: kind={wind,rain,distance}

	// Exposure publisher metrics.
	RowsPublished prometheus.Counter
	PublishErrors prometheus.Counter

	// Export metrics.
	FilesExported prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.QueriesTotal,
		m.QueryDuration,
		m.RowsReturned,
		m.CatalogRecords,
		m.RowsPublished,
		m.PublishErrors,
		m.FilesExported,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_exposure",
			Name:      "queries_total",
			Help:      "Exposure queries by metric, scope, and outcome.",
		}, []string{"metric", "scope", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storm_exposure",
			Name:      "query_duration_seconds",
			Help:      "Duration of a complete exposure query.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"metric"}),
		RowsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_exposure",
			Name:      "rows_returned",
			Help:      "Exposure rows per successful query.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
		CatalogRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storm_exposure",
			Name:      "catalog_records",
			Help:      "Hazard records loaded into the catalog, by kind.",
		}, []string{"kind"}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_exposure",
			Name:      "rows_published_total",
			Help:      "Exposure rows published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_exposure",
			Name:      "publish_errors_total",
			Help:      "Failed publishes to the sink topic.",
		}),
		FilesExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_exposure",
			Name:      "files_exported_total",
			Help:      "Per-location files written by the exporter.",
		}),
	}
}
