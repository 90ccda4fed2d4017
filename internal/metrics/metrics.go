// Package metrics defines the Prometheus collectors exposed by the server
// and the HTTP handler that serves them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "symdex"

// Search outcomes
const (
	OutcomeOK         = "ok"
	OutcomeZeroResult = "zero_result"
	OutcomeInvalid    = "invalid"
	OutcomeNotReady   = "not_ready"
	OutcomeError      = "error"
	OutcomeFound      = "found"
	OutcomeNotFound   = "not_found"
)

// Cache statuses of a search
const (
	CacheStatusHit    = "hit"
	CacheStatusMiss   = "miss"
	CacheStatusBypass = "bypass"
)

// Metrics holds all Prometheus collectors for the server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SearchRequestsTotal *prometheus.CounterVec
	SearchLatency       *prometheus.HistogramVec
	LookupRequestsTotal *prometheus.CounterVec
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	IndexedEntries      *prometheus.GaugeVec
	SyncErrorsTotal     *prometheus.CounterVec
	SyncDuration        prometheus.Histogram
	RateLimitedTotal    prometheus.Counter
}

// New creates all collectors and registers them on a private registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SearchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total search_symbols calls by outcome.",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "search_symbols latency in seconds.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		LookupRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookup_requests_total",
				Help:      "Total lookup_symbol calls by outcome.",
			},
			[]string{"outcome"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of search cache misses.",
			},
		),
		IndexedEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "indexed_entries",
				Help:      "Number of search entries indexed per source.",
			},
			[]string{"source"},
		),
		SyncErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_errors_total",
				Help:      "Total failed source syncs.",
			},
			[]string{"source"},
		),
		SyncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of a full sync of all sources.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Total HTTP requests rejected by the rate limiter.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SearchRequestsTotal,
		m.SearchLatency,
		m.LookupRequestsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexedEntries,
		m.SyncErrorsTotal,
		m.SyncDuration,
		m.RateLimitedTotal,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSearch records one search call.
func (m *Metrics) ObserveSearch(outcome, cacheStatus string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(outcome).Inc()
	if cacheStatus != "" {
		m.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	}
}

// ObserveLookup records one lookup call.
func (m *Metrics) ObserveLookup(outcome string) {
	if m == nil {
		return
	}
	m.LookupRequestsTotal.WithLabelValues(outcome).Inc()
}

// CacheHit records a cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// CacheMiss records a cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

// SetIndexedEntries records the entry count of a source.
func (m *Metrics) SetIndexedEntries(source string, n int) {
	if m == nil {
		return
	}
	m.IndexedEntries.WithLabelValues(source).Set(float64(n))
}

// ForgetSource drops the per-source series of a removed source.
func (m *Metrics) ForgetSource(source string) {
	if m == nil {
		return
	}
	m.IndexedEntries.DeleteLabelValues(source)
	m.SyncErrorsTotal.DeleteLabelValues(source)
}

// SyncFailed records a failed source sync.
func (m *Metrics) SyncFailed(source string) {
	if m == nil {
		return
	}
	m.SyncErrorsTotal.WithLabelValues(source).Inc()
}

// ObserveSync records the duration of a sync round.
func (m *Metrics) ObserveSync(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncDuration.Observe(elapsed.Seconds())
}

// RateLimited records a rejected request.
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}
