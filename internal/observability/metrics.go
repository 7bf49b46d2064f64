package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard service.
type Metrics struct {
	// Upstream API metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: endpoint={points,forecast,alerts,search,postalcode}, outcome={success,error,empty}
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint
	GeocodeCache     *prometheus.CounterVec   // labels: method={text,postalcode}, result={hit,miss}

	// Aggregation metrics.
	SnapshotsBuilt    *prometheus.CounterVec // labels: outcome={success,error}
	AlertsDegraded    prometheus.Counter
	StaleResponses    prometheus.Counter
	TornadoSurfaced   prometheus.Counter
	SnapshotStaleness prometheus.Counter

	// Notification metrics.
	Notifications *prometheus.CounterVec // labels: outcome={sent,queued,skipped,failed}

	// Monitor metrics.
	MonitorRunning       prometheus.Gauge
	MonitorCycleDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to NWS and geocoding APIs by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		SnapshotsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Weather snapshot aggregations by outcome.",
		}, []string{"outcome"}),
		AlertsDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_degraded_total",
			Help:      "Snapshots built with an empty alert list because the alerts lookup failed.",
		}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_discarded_total",
			Help:      "Snapshot results discarded because a newer request superseded them.",
		}),
		TornadoSurfaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tornado_warnings_surfaced_total",
			Help:      "Times a changed set of tornado warnings was surfaced to a session.",
		}),
		SnapshotStaleness: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_staleness_checks_total",
			Help:      "Staleness checks that found the displayed snapshot older than the max age.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Alert e-mail notifications by outcome.",
		}, []string{"outcome"}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 when the watchlist monitor is active, 0 when shut down.",
		}),
		MonitorCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_cycle_duration_seconds",
			Help:      "Duration of one pass over the watchlist.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.GeocodeCache,
		m.SnapshotsBuilt,
		m.AlertsDegraded,
		m.StaleResponses,
		m.TornadoSurfaced,
		m.SnapshotStaleness,
		m.Notifications,
		m.MonitorRunning,
		m.MonitorCycleDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
