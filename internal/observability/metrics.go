package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dataset-assembly pipeline. Dropped rows are labelled by stage and reason
// so data-quality regressions in the upstream extracts are observable.
type Metrics struct {
	YieldRowsIn   prometheus.Counter
	RowsAssembled prometheus.Counter
	RowsDropped   *prometheus.CounterVec // labels: stage={clean,assemble}, reason

	AssemblyDuration prometheus.Histogram
	DatasetColumns   prometheus.Gauge

	// Geocoding metrics.
	GeocodeCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.YieldRowsIn,
		m.RowsAssembled,
		m.RowsDropped,
		m.AssemblyDuration,
		m.DatasetColumns,
		m.GeocodeCache,
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
		YieldRowsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pvyield",
			Name:      "yield_rows_in_total",
			Help:      "Total yield observations considered for assembly.",
		}),
		RowsAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pvyield",
			Name:      "rows_assembled_total",
			Help:      "Total rows written to the assembled dataset.",
		}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pvyield",
			Name:      "rows_dropped_total",
			Help:      "Rows excluded from the dataset by stage and reason.",
		}, []string{"stage", "reason"}),
		AssemblyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pvyield",
			Name:      "assembly_duration_seconds",
			Help:      "Duration of a complete clean-join-enrich run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		DatasetColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pvyield",
			Name:      "dataset_columns",
			Help:      "Number of feature columns in the last assembled dataset.",
		}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pvyield",
			Name:      "geocode_cache_total",
			Help:      "Gazetteer cache lookups by result.",
		}, []string{"result"}),
	}
}
