package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the ad insertion service.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	manifestsRewritten prometheus.Counter
	markersMissing     prometheus.Counter
	sessionsBound      prometheus.Counter
	bindFailures       prometheus.Counter
	segmentsResolved   prometheus.Counter
	lookupMisses       prometheus.Counter
	bindsInFlight      prometheus.Gauge
	storeEntries       prometheus.Gauge
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adinsert_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adinsert_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		manifestsRewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adinsert_manifests_rewritten_total",
			Help: "Total number of playlists returned with a new session",
		}),
		markersMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adinsert_markers_missing_total",
			Help: "Total number of origin playlists without an ad break marker",
		}),
		sessionsBound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adinsert_sessions_bound_total",
			Help: "Total number of session to ad bindings written",
		}),
		bindFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adinsert_session_bind_failures_total",
			Help: "Total number of session bindings that could not be written",
		}),
		segmentsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adinsert_segments_resolved_total",
			Help: "Total number of ad segment requests resolved to ad media",
		}),
		lookupMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adinsert_session_lookup_misses_total",
			Help: "Total number of ad segment requests whose session had no binding",
		}),
		bindsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adinsert_binds_in_flight",
			Help: "Number of background session binds not yet finished",
		}),
		storeEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adinsert_store_entries",
			Help: "Number of session bindings held by the session store, when it can tell",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.manifestsRewritten,
		m.markersMissing,
		m.sessionsBound,
		m.bindFailures,
		m.segmentsResolved,
		m.lookupMisses,
		m.bindsInFlight,
		m.storeEntries,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncManifestsRewritten increments the rewritten playlist counter.
func (m *Metrics) IncManifestsRewritten() {
	m.manifestsRewritten.Inc()
}

// IncMarkersMissing increments the missing marker counter.
func (m *Metrics) IncMarkersMissing() {
	m.markersMissing.Inc()
}

// IncSessionsBound increments the written bindings counter.
func (m *Metrics) IncSessionsBound() {
	m.sessionsBound.Inc()
}

// IncBindFailures increments the failed bindings counter.
func (m *Metrics) IncBindFailures() {
	m.bindFailures.Inc()
}

// IncSegmentsResolved increments the resolved ad segment counter.
func (m *Metrics) IncSegmentsResolved() {
	m.segmentsResolved.Inc()
}

// IncLookupMisses increments the session lookup miss counter.
func (m *Metrics) IncLookupMisses() {
	m.lookupMisses.Inc()
}

// IncBindsInFlight marks a background bind as started.
func (m *Metrics) IncBindsInFlight() {
	m.bindsInFlight.Inc()
}

// DecBindsInFlight marks a background bind as finished.
func (m *Metrics) DecBindsInFlight() {
	m.bindsInFlight.Dec()
}

// SetStoreEntries sets the store entries gauge.
func (m *Metrics) SetStoreEntries(n int) {
	m.storeEntries.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. store size).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
