// Package metrics provides Prometheus metrics for the pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Refresh metrics
	RefreshesTotal  *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec
	RetryAttempts   *prometheus.CounterVec

	// Partition metrics
	RowsPublished        *prometheus.CounterVec
	PartitionRows        *prometheus.HistogramVec
	LastRefreshTimestamp *prometheus.GaugeVec

	// Collaborator metrics
	FetchErrors   *prometheus.CounterVec
	StorageErrors *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for metrics HTTP server (e.g., ":9090")
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "weather_pipeline"
	}

	m := &Metrics{
		RefreshesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refreshes_total",
				Help:      "Total number of partition refreshes by outcome",
			},
			[]string{"layer", "table", "outcome"},
		),
		RefreshDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Wall time of one layer invocation",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
			},
			[]string{"layer", "table"},
		),
		RetryAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of delete-insert retries on transient failures",
			},
			[]string{"table"},
		),
		RowsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_published_total",
				Help:      "Total rows committed to partitions",
			},
			[]string{"layer", "table"},
		),
		PartitionRows: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "partition_rows",
				Help:      "Number of rows per committed partition",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1 to ~4k
			},
			[]string{"layer", "table"},
		),
		LastRefreshTimestamp: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_refresh_timestamp_seconds",
				Help:      "Unix time of the last successful refresh",
			},
			[]string{"layer", "table"},
		),
		FetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Total number of upstream fetch errors",
			},
			[]string{"source"},
		),
		StorageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of storage errors by kind",
			},
			[]string{"table", "kind"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// IncRefreshes increments the refresh counter for an outcome.
func (m *Metrics) IncRefreshes(layer, table, outcome string) {
	m.RefreshesTotal.WithLabelValues(layer, table, outcome).Inc()
}

// ObserveRefreshDuration records the wall time of one invocation.
func (m *Metrics) ObserveRefreshDuration(layer, table string, seconds float64) {
	m.RefreshDuration.WithLabelValues(layer, table).Observe(seconds)
}

// IncRetryAttempts increments the retry counter for a table.
func (m *Metrics) IncRetryAttempts(table string) {
	m.RetryAttempts.WithLabelValues(table).Inc()
}

// AddRowsPublished adds committed rows for a layer.
func (m *Metrics) AddRowsPublished(layer, table string, count float64) {
	m.RowsPublished.WithLabelValues(layer, table).Add(count)
	m.PartitionRows.WithLabelValues(layer, table).Observe(count)
}

// SetLastRefresh records the time of the last successful refresh.
func (m *Metrics) SetLastRefresh(layer, table string, unixSeconds float64) {
	m.LastRefreshTimestamp.WithLabelValues(layer, table).Set(unixSeconds)
}

// IncFetchErrors increments the fetch error counter.
func (m *Metrics) IncFetchErrors(source string) {
	m.FetchErrors.WithLabelValues(source).Inc()
}

// IncStorageErrors increments the storage error counter.
func (m *Metrics) IncStorageErrors(table, kind string) {
	m.StorageErrors.WithLabelValues(table, kind).Inc()
}
