// Package metrics defines the Prometheus collectors of the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentimen"

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	LoginAttempts     *prometheus.CounterVec
	UserMutations     *prometheus.CounterVec
	DirectoryCache    *prometheus.CounterVec
	Predictions       *prometheus.CounterVec
	PredictionLatency *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// New creates and registers the collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		UserMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_mutations_total",
			Help:      "User add, delete and edit operations by result.",
		}, []string{"op", "result"}),
		DirectoryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_cache_events_total",
			Help:      "Directory snapshot hits, misses and invalidations.",
		}, []string{"event"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Texts classified by source.",
		}, []string{"source"}),
		PredictionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent in the classifier per request.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"source"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.LoginAttempts,
		m.UserMutations,
		m.DirectoryCache,
		m.Predictions,
		m.PredictionLatency,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The helpers below accept a nil receiver so callers can run without metrics.

// ObserveLogin records a login attempt.
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// ObserveMutation records a user mutation.
func (m *Metrics) ObserveMutation(op, result string) {
	if m == nil {
		return
	}
	m.UserMutations.WithLabelValues(op, result).Inc()
}

// ObserveDirectory records a directory cache event (hit, miss, invalidate).
func (m *Metrics) ObserveDirectory(event string) {
	if m == nil {
		return
	}
	m.DirectoryCache.WithLabelValues(event).Inc()
}

// ObservePrediction records n texts classified from source in d.
func (m *Metrics) ObservePrediction(source string, n int, d time.Duration) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(source).Add(float64(n))
	m.PredictionLatency.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
