package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_map"

// Metrics holds the Prometheus counters, histograms, and gauges for the map service.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Earthquake refresh metrics.
	FetchRequests    *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration    prometheus.Histogram
	RefreshesApplied prometheus.Counter
	StaleRefreshes   prometheus.Counter
	QuakesLoaded     prometheus.Gauge
	QuakesExcluded   prometheus.Counter

	// Boundary layer metrics.
	BoundaryFeatures *prometheus.GaugeVec   // labels: layer
	BoundaryRequests *prometheus.CounterVec // labels: layer, outcome={success,error}
	BoundaryCache    *prometheus.CounterVec // labels: result={hit,miss}

	// View metrics.
	SelectionChanges *prometheus.CounterVec // labels: action={select,clear}
	PublishErrors    prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Earthquake event API requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Earthquake event API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RefreshesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_applied_total",
			Help:      "Record sets that replaced the in-memory set.",
		}),
		StaleRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_refreshes_total",
			Help:      "Refresh results dropped because a newer refresh was already applied.",
		}),
		QuakesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "quakes_loaded",
			Help:      "Earthquakes in the current record set.",
		}),
		QuakesExcluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quakes_excluded_total",
			Help:      "Fetched events dropped by the alert and date filter.",
		}),
		BoundaryFeatures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boundary_features",
			Help:      "Features loaded per boundary layer.",
		}, []string{"layer"}),
		BoundaryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_requests_total",
			Help:      "Boundary layer requests by layer and outcome.",
		}, []string{"layer", "outcome"}),
		BoundaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_cache_total",
			Help:      "Boundary layer cache lookups by result.",
		}, []string{"result"}),
		SelectionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_changes_total",
			Help:      "Selection transitions by action.",
		}, []string{"action"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed attempts to publish or persist a record set.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PipelineRunning,
		m.FetchRequests,
		m.FetchDuration,
		m.RefreshesApplied,
		m.StaleRefreshes,
		m.QuakesLoaded,
		m.QuakesExcluded,
		m.BoundaryFeatures,
		m.BoundaryRequests,
		m.BoundaryCache,
		m.SelectionChanges,
		m.PublishErrors,
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
