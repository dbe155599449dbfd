package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the client.
type Metrics struct {
	// Location lookup metrics.
	LookupsIssued    prometheus.Counter
	LookupsDiscarded prometheus.Counter // stale responses dropped by sequence gating
	LookupErrors     prometheus.Counter

	// Geocoding adapter metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram

	// Submission metrics.
	Submissions        *prometheus.CounterVec // labels: outcome={succeeded,failed}
	SubmissionRejected prometheus.Counter
	SubmissionDuration prometheus.Histogram

	SessionsActive prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.LookupsIssued,
		m.LookupsDiscarded,
		m.LookupErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.Submissions,
		m.SubmissionRejected,
		m.SubmissionDuration,
		m.SessionsActive,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewUnregisteredMetrics creates Metrics for one-shot commands that never
// expose a /metrics endpoint.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LookupsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "event_risk",
			Name:      "location_lookups_total",
			Help:      "Debounced location lookups sent to the geocoder.",
		}),
		LookupsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "event_risk",
			Name:      "location_lookups_discarded_total",
			Help:      "Lookup responses dropped because a newer lookup superseded them.",
		}),
		LookupErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "event_risk",
			Name:      "location_lookup_errors_total",
			Help:      "Lookups that failed and degraded to empty suggestions.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_risk",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_risk",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "event_risk",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_risk",
			Name:      "submissions_total",
			Help:      "Finished forecast submissions by outcome.",
		}, []string{"outcome"}),
		SubmissionRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "event_risk",
			Name:      "submissions_rejected_total",
			Help:      "Submit attempts rejected because another submission was in flight.",
		}),
		SubmissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "event_risk",
			Name:      "submission_duration_seconds",
			Help:      "Forecast submission duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "event_risk",
			Name:      "sessions_active",
			Help:      "Connected UI sessions.",
		}),
	}
}
