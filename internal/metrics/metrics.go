package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PanelMetrics records dashboard panel computations.
type PanelMetrics struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
	cache    *prometheus.CounterVec
}

// NewPanelMetrics registers the panel metrics on the provided registerer.
func NewPanelMetrics(reg prometheus.Registerer) *PanelMetrics {
	if reg == nil {
		return &PanelMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panel_compute_seconds",
		Help:    "Time spent computing a dashboard panel.",
		Buckets: prometheus.DefBuckets,
	}, []string{"panel"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_failures_total",
		Help: "Panel computations that returned an error.",
	}, []string{"panel"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_cache_lookups_total",
		Help: "Panel cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(duration, failures, cache)
	return &PanelMetrics{
		duration: duration,
		failures: failures,
		cache:    cache,
	}
}

// ObserveDuration records how long the named panel took.
func (m *PanelMetrics) ObserveDuration(panel string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(panel)).Observe(d.Seconds())
}

func (m *PanelMetrics) IncFailure(panel string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(panel)).Inc()
}

// CacheLookup counts a panel cache hit or miss.
func (m *PanelMetrics) CacheLookup(hit bool) {
	if m == nil || m.cache == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

// HTTPMetrics records served requests.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(requests, duration)
	return &HTTPMetrics{requests: requests, duration: duration}
}

// Observe records one finished request.
func (m *HTTPMetrics) Observe(method, route string, status int, d time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	route = normalizeLabel(route)
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
