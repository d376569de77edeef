// Package metrics provides Prometheus metrics for the vaxdash service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the vaxdash service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Pipeline metrics
	recomputeTotal   prometheus.Counter
	recomputeLatency prometheus.Histogram
	stageLatency     *prometheus.HistogramVec
	viewRows         *prometheus.GaugeVec
	viewDegraded     *prometheus.CounterVec
	rankingExcluded  prometheus.Counter
	populationZero   prometheus.Counter

	// Dataset metrics
	datasetRows         *prometheus.GaugeVec
	datasetInvalidCells *prometheus.GaugeVec
	datasetLoadLatency  *prometheus.HistogramVec
	datasetFetchRetries *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vaxdash",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether collection is enabled for this manager.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval returns how often gauge metrics should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Configure applies options that are safe to change after registration
// (enabled and refresh interval) to the global manager. Options touching
// metric names or the registry are ignored.
func Configure(opts ...Option) {
	scratch := &Manager{enabled: globalManager.enabled, refreshInterval: globalManager.refreshInterval}
	for _, opt := range opts {
		opt(scratch)
	}
	globalManager.enabled = scratch.enabled
	globalManager.refreshInterval = scratch.refreshInterval
}

// Enabled reports whether the global manager records anything.
func Enabled() bool { return globalManager.enabled }

// RefreshInterval returns the global gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.recomputeTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("recompute_total"),
		Help:        "Total number of full view recomputation passes",
		ConstLabels: labels,
	})

	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("recompute_latency_milliseconds"),
		Help:        "Latency of one full recomputation pass in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.stageLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stage_latency_milliseconds"),
		Help:        "Latency of a single pipeline stage in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"stage"})

	m.viewRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("view_rows"),
		Help:        "Number of rows produced for a view by the last pass",
		ConstLabels: labels,
	}, []string{"view"})

	m.viewDegraded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("view_degraded_total"),
		Help:        "Views rendered as placeholders, by view and reason",
		ConstLabels: labels,
	}, []string{"view", "reason"})

	m.rankingExcluded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("ranking_excluded_states_total"),
		Help:        "States left out of a ranking because the metric was missing",
		ConstLabels: labels,
	})

	m.populationZero = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("population_zero_rows_total"),
		Help:        "Projected rows flagged because the population was zero",
		ConstLabels: labels,
	})

	m.datasetRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "dataset",
		Name:        m.name("rows"),
		Help:        "Number of records loaded per dataset",
		ConstLabels: labels,
	}, []string{"dataset"})

	m.datasetInvalidCells = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "dataset",
		Name:        m.name("invalid_cells"),
		Help:        "Cells rejected while parsing a dataset",
		ConstLabels: labels,
	}, []string{"dataset"})

	m.datasetLoadLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "dataset",
		Name:        m.name("load_latency_milliseconds"),
		Help:        "Time to fetch and parse a dataset in milliseconds",
		Buckets:     []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		ConstLabels: labels,
	}, []string{"dataset"})

	m.datasetFetchRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "dataset",
		Name:        m.name("fetch_retries_total"),
		Help:        "Retried remote dataset fetches",
		ConstLabels: labels,
	}, []string{"dataset"})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        m.name("requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   "http",
			Name:        m.name("request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        m.name("by_component_total"),
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        m.name("by_type_total"),
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        m.name("by_endpoint_total"),
		Help:        "Errors by endpoint, method and type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "errors",
		Name:        m.name("latency_milliseconds"),
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        m.name("gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Pipeline Metrics Functions.

// RecordRecompute records one full recomputation pass.
func RecordRecompute(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.recomputeTotal.Inc()
	globalManager.recomputeLatency.Observe(latencyMs)
}

// RecordStageLatency records the latency of a pipeline stage.
func RecordStageLatency(stage string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// UpdateViewRows sets the number of rows a view produced.
func UpdateViewRows(view string, rows int) {
	if !globalManager.enabled {
		return
	}
	globalManager.viewRows.WithLabelValues(view).Set(float64(rows))
}

// RecordViewDegraded counts a view that fell back to a placeholder.
func RecordViewDegraded(view, reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.viewDegraded.WithLabelValues(view, reason).Inc()
}

// RecordRankingExcluded counts states excluded from a ranking.
func RecordRankingExcluded(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankingExcluded.Add(float64(count))
}

// RecordPopulationZero counts rows flagged for zero population.
func RecordPopulationZero(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.populationZero.Add(float64(count))
}

// Dataset Metrics Functions.

// UpdateDatasetRows sets the record count of a dataset.
func UpdateDatasetRows(dataset string, rows int) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetRows.WithLabelValues(dataset).Set(float64(rows))
}

// UpdateDatasetInvalidCells sets the rejected cell count of a dataset.
func UpdateDatasetInvalidCells(dataset string, cells int) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetInvalidCells.WithLabelValues(dataset).Set(float64(cells))
}

// RecordDatasetLoadLatency records how long a dataset took to load.
func RecordDatasetLoadLatency(dataset string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetLoadLatency.WithLabelValues(dataset).Observe(latencyMs)
}

// RecordDatasetFetchRetry counts a retried remote fetch.
func RecordDatasetFetchRetry(dataset string) {
	if !globalManager.enabled {
		return
	}
	globalManager.datasetFetchRetries.WithLabelValues(dataset).Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
