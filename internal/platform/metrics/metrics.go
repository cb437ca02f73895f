// Package metrics expone métricas Prometheus del servicio: HTTP y contadores de dominio.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los collectors en un registry propio (no el default global),
// así cada router de test tiene el suyo.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	tokensIssued     *prometheus.CounterVec
	tokenResolutions *prometheus.CounterVec
	reviews          *prometheus.CounterVec
	messagesPosted   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_tokens_issued_total",
			Help: "Access tokens issued by kind (portal, share).",
		}, []string{"kind"}),
		tokenResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "access_token_resolutions_total",
			Help: "Access token resolutions by kind and result.",
		}, []string{"kind", "result"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attachment_reviews_total",
			Help: "Attachment review decisions.",
		}, []string{"decision"}),
		messagesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "client_messages_posted_total",
			Help: "Messages appended to client channels by author side.",
		}, []string{"author"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.tokensIssued, m.tokenResolutions, m.reviews, m.messagesPosted,
	)
	return m
}

// Handler sirve /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument mide RPS/latencia/en vuelo. Usa el patrón de ruta de chi como label
// para no explotar la cardinalidad con ids/tokens en el path.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) TokenResolved(kind, result string) {
	if m == nil {
		return
	}
	m.tokenResolutions.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Reviewed(decision string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(decision).Inc()
}

func (m *Metrics) MessagePosted(author string) {
	if m == nil {
		return
	}
	m.messagesPosted.WithLabelValues(author).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush mantiene el soporte de SSE a través del wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
