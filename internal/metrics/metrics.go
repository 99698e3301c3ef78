// Package metrics exposes the Prometheus collectors shared by the server,
// the sync worker and the weekend roller.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cricketpay"

// Result labels
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultConflict = "conflict"
	ResultStale    = "stale"
)

// Metrics holds the collectors on a private registry so tests and multiple
// binaries never collide on the global one. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	ledgerOps    *prometheus.CounterVec
	syncPushes   *prometheus.CounterVec
	advances     *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Ledger mutations and reads by operation and result.",
		}, []string{"op", "result"}),
		syncPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_pushes_total",
			Help:      "Snapshot pushes to the remote store by result.",
		}, []string{"result"}),
		advances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weekend_advances_total",
			Help:      "Weekend rollovers by trigger.",
		}, []string{"trigger"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_lookups_total",
			Help:      "Snapshot cache lookups by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.ledgerOps,
		m.syncPushes,
		m.advances,
		m.httpDuration,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// LedgerOp counts one ledger operation with the given result label.
func (m *Metrics) LedgerOp(op, result string) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, result).Inc()
}

// SyncPush counts one remote push.
func (m *Metrics) SyncPush(result string) {
	if m == nil {
		return
	}
	m.syncPushes.WithLabelValues(result).Inc()
}

// Advance counts one weekend rollover.
func (m *Metrics) Advance(trigger string) {
	if m == nil {
		return
	}
	m.advances.WithLabelValues(trigger).Inc()
}

// ObserveHTTP records the latency of one request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// CacheLookup counts a snapshot cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
}
