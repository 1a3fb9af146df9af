// Package metrics exposes the process-level Prometheus collectors: the
// metrics server's own requests, calls to the ingestion endpoint and rate
// limiter delays. Crawl progress metrics live in progress/sinks.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds collectors registered against one registry.
type Metrics struct {
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	ingestRequestsTotal        *prometheus.CounterVec
	ingestDurationSeconds      *prometheus.HistogramVec
	ingestInFlight             prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec
}

// New registers the collectors with reg. It panics on duplicate
// registration, like promauto.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "misheard_http_requests_total",
				Help: "Requests served by the metrics server, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpRequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "misheard_http_request_duration_seconds",
				Help:    "Latency of requests served by the metrics server, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "route"},
		),
		ingestRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "misheard_ingest_requests_total",
				Help: "Requests sent to the ingestion endpoint, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		ingestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "misheard_ingest_request_duration_seconds",
				Help:    "Latency of ingestion endpoint requests.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method"},
		),
		ingestInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "misheard_ingest_requests_in_flight",
			Help: "Ingestion requests currently waiting for a response.",
		}),
		rateLimitDelaysSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "misheard_rate_limit_delays_seconds",
				Help:    "Time spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		),
	}
}

// SanitizeSite extracts a lowercase hostname from rawURL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveHTTPRequest records one request served by the metrics server.
func (m *Metrics) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records a limiter wait that actually blocked.
func (m *Metrics) ObserveRateLimitDelay(site string, duration time.Duration) {
	m.rateLimitDelaysSeconds.WithLabelValues(SanitizeSite(site)).Observe(duration.Seconds())
}

// InstrumentTransport wraps next so every ingestion request is counted and
// timed. A nil next uses http.DefaultTransport.
func (m *Metrics) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(m.ingestInFlight,
		promhttp.InstrumentRoundTripperCounter(m.ingestRequestsTotal,
			promhttp.InstrumentRoundTripperDuration(m.ingestDurationSeconds, next),
		),
	)
}
