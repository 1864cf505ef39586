// README: Prometheus collectors for quotes, searches, bookings, distances and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	quotesTotal         *prometheus.CounterVec
	searchesTotal       *prometheus.CounterVec
	searchDuration      prometheus.Histogram
	quotaDecisionsTotal *prometheus.CounterVec
	distanceSources     *prometheus.CounterVec
	bookingsTotal       *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		quotesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtc_quotes_total",
			Help: "Price quotes computed, by vehicle type and outcome.",
		}, []string{"vehicle_type", "outcome"}),
		searchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtc_driver_searches_total",
			Help: "Driver searches, by outcome (ok, empty, stale, error).",
		}, []string{"outcome"}),
		searchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vtc_driver_search_duration_seconds",
			Help:    "Driver search latency.",
			Buckets: prometheus.DefBuckets,
		}),
		quotaDecisionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtc_quota_decisions_total",
			Help: "Subscription quota decisions during matching.",
		}, []string{"decision"}),
		distanceSources: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtc_distance_source_total",
			Help: "Trip distances by source (route, cache, haversine).",
		}, []string{"source"}),
		bookingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtc_bookings_total",
			Help: "Booking lifecycle events.",
		}, []string{"event"}),
		notificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtc_notifications_total",
			Help: "Notification deliveries by channel and outcome.",
		}, []string{"channel", "outcome"}),
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vtc_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vtc_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Quote(vehicleType, outcome string) {
	if m == nil {
		return
	}
	m.quotesTotal.WithLabelValues(vehicleType, outcome).Inc()
}

func (m *Metrics) Search(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(took.Seconds())
}

func (m *Metrics) QuotaDecision(decision string) {
	if m == nil {
		return
	}
	m.quotaDecisionsTotal.WithLabelValues(decision).Inc()
}

func (m *Metrics) DistanceSource(source string) {
	if m == nil {
		return
	}
	m.distanceSources.WithLabelValues(source).Inc()
}

func (m *Metrics) Booking(event string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(event).Inc()
}

// Bookings adds n lifecycle events at once (batch expiry).
func (m *Metrics) Bookings(event string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bookingsTotal.WithLabelValues(event).Add(float64(n))
}

func (m *Metrics) Notification(channel, outcome string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(channel, outcome).Inc()
}

// HTTPRequest records one request; path should be the route template, not the raw URL.
func (m *Metrics) HTTPRequest(method, path string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(took.Seconds())
}
