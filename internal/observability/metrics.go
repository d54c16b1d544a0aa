package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by
// the analysis pipeline and the weather acquisition layer.
type Metrics struct {
	AnalysesTotal    prometheus.Counter
	AnalysisFailures *prometheus.CounterVec   // label: code
	StageDuration    *prometheus.HistogramVec // label: stage={parse,normalize,merge,metrics}
	RowsMerged       prometheus.Histogram
	WarningsTotal    prometheus.Counter

	// Weather acquisition metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}
	FetchDuration prometheus.Histogram
	FetchBacklog  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AnalysesTotal,
		m.AnalysisFailures,
		m.StageDuration,
		m.RowsMerged,
		m.WarningsTotal,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
		m.FetchBacklog,
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
		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "order_weather",
			Name:      "analyses_total",
			Help:      "Total pipeline runs attempted.",
		}),
		AnalysisFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "order_weather",
			Name:      "analysis_failures_total",
			Help:      "Terminal pipeline failures by error code.",
		}, []string{"code"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "order_weather",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"stage"}),
		RowsMerged: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "order_weather",
			Name:      "rows_merged",
			Help:      "Merged daily rows per pipeline run.",
			Buckets:   []float64{7, 14, 30, 60, 90, 180, 365, 730},
		}),
		WarningsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "order_weather",
			Name:      "warnings_total",
			Help:      "Non-fatal warnings accumulated across pipeline runs.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "order_weather",
			Name:      "fetch_requests_total",
			Help:      "Upstream weather API requests by outcome.",
		}, []string{"outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "order_weather",
			Name:      "fetch_cache_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "order_weather",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream weather API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FetchBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "order_weather",
			Name:      "fetch_backlog_dates",
			Help:      "Dates queued for weather acquisition in the current batch run.",
		}),
	}
}
