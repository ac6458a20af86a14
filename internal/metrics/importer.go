package metrics

import "github.com/prometheus/client_golang/prometheus"

// Importer Prometheus metrics.
var (
	ImportRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mvw",
			Name:      "import_runs_total",
			Help:      "Total number of film list import runs",
		},
		[]string{"outcome"}, // "imported" / "unchanged" / "not_leader" / "error"
	)

	ImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mvw",
			Name:      "import_duration_seconds",
			Help:      "Film list import duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	ImportEntriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mvw",
			Name:      "import_entries_total",
			Help:      "Total entries written by imports",
		},
	)

	ImportSkippedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mvw",
			Name:      "import_skipped_records_total",
			Help:      "Total malformed film list records skipped",
		},
	)

	IndexPendingEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mvw",
			Name:      "index_pending_entries",
			Help:      "Entries queued for indexing",
		},
	)
)

var importerMetricsRegistered bool

// RegisterImporterMetrics registers Prometheus importer metrics. Must be called once from main.
func RegisterImporterMetrics() {
	if importerMetricsRegistered {
		return
	}
	prometheus.MustRegister(ImportRunsTotal)
	prometheus.MustRegister(ImportDuration)
	prometheus.MustRegister(ImportEntriesTotal)
	prometheus.MustRegister(ImportSkippedRecordsTotal)
	prometheus.MustRegister(IndexPendingEntries)
	importerMetricsRegistered = true
}
