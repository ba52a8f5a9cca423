// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache outcome labels.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheError    = "error"
	CacheSetError = "set_error"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	CacheRequests   *prometheus.CounterVec
	KPIDuration     *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	IngestedReading *prometheus.CounterVec
	PricePolls      *prometheus.CounterVec
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ekpi",
			Name:      "cache_requests_total",
			Help:      "KPI cache lookups by KPI and outcome.",
		}, []string{"kpi", "outcome"}),
		KPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ekpi",
			Name:      "kpi_compute_seconds",
			Help:      "Time spent computing a KPI on a cache miss.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kpi"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ekpi",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ekpi",
			Name:      "http_request_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		IngestedReading: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ekpi",
			Name:      "ingested_readings_total",
			Help:      "Readings received from the ingest topic by result.",
		}, []string{"result"}),
		PricePolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ekpi",
			Name:      "price_polls_total",
			Help:      "Grid price polls by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.CacheRequests,
		m.KPIDuration,
		m.HTTPRequests,
		m.HTTPDuration,
		m.IngestedReading,
		m.PricePolls,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCache counts a cache outcome for kpi. Safe on a nil receiver.
func (m *Metrics) ObserveCache(kpi, outcome string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(kpi, outcome).Inc()
}

// ObserveKPI records the compute duration of kpi. Safe on a nil receiver.
func (m *Metrics) ObserveKPI(kpi string, d time.Duration) {
	if m == nil {
		return
	}
	m.KPIDuration.WithLabelValues(kpi).Observe(d.Seconds())
}

// ObserveHTTP records one served request. Safe on a nil receiver.
func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveIngest counts n ingested readings with result. Safe on a nil receiver.
func (m *Metrics) ObserveIngest(result string, n int) {
	if m == nil {
		return
	}
	m.IngestedReading.WithLabelValues(result).Add(float64(n))
}

// ObservePricePoll counts one price poll. Safe on a nil receiver.
func (m *Metrics) ObservePricePoll(result string) {
	if m == nil {
		return
	}
	m.PricePolls.WithLabelValues(result).Inc()
}
