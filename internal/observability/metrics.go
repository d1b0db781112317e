package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a
// pipeline run.
type Metrics struct {
	RowsNormalized prometheus.Counter
	RowsMalformed  prometheus.Counter
	RowsSkipped    prometheus.Counter

	StatesInserted   prometheus.Counter
	StatesSkipped    prometheus.Counter
	StationsInserted prometheus.Counter
	StationsSkipped  prometheus.Counter
	RecordsLoaded    prometheus.Counter

	RecordBatchSize     prometheus.Histogram
	RecordBatchDuration prometheus.Histogram
	PipelineRunning     prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,empty,error}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsNormalized,
		m.RowsMalformed,
		m.RowsSkipped,
		m.StatesInserted,
		m.StatesSkipped,
		m.StationsInserted,
		m.StationsSkipped,
		m.RecordsLoaded,
		m.RecordBatchSize,
		m.RecordBatchDuration,
		m.PipelineRunning,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeDuration,
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
		RowsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "rows_normalized_total",
			Help:      "Raw records successfully normalized into canonical rows.",
		}),
		RowsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "rows_malformed_total",
			Help:      "Raw records rejected as malformed.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "rows_skipped_total",
			Help:      "Canonical rows skipped during load (no resolvable station).",
		}),
		StatesInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "states_inserted_total",
			Help:      "State rows inserted.",
		}),
		StatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "states_skipped_total",
			Help:      "State candidates skipped (already present or code conflict).",
		}),
		StationsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "stations_inserted_total",
			Help:      "Station rows inserted.",
		}),
		StationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "stations_skipped_total",
			Help:      "Station candidates skipped (already present or unresolvable).",
		}),
		RecordsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "records_loaded_total",
			Help:      "Weather records written to the store.",
		}),
		RecordBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_pipeline",
			Name:      "record_batch_size",
			Help:      "Number of weather records per insert batch.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2000},
		}),
		RecordBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_pipeline",
			Name:      "record_batch_duration_seconds",
			Help:      "Duration of one weather record batch insert and commit.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_pipeline",
			Name:      "running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "geocode_requests_total",
			Help:      "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_pipeline",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_pipeline",
			Name:      "geocode_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
