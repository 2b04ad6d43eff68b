// Package metrics holds Prometheus instruments that are used across the
// gateway.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "campus_active_sessions",
			Help: "Number of sessions currently held by the in-memory store.",
		})

	SessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_session_evict_total",
			Help: "Cumulative number of idle sessions evicted.",
		})

	ResolverDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_resolver_decisions_total",
			Help: "Context resolver outcomes by kind.",
		}, []string{"decision"})

	ScopingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_scoping_decisions_total",
			Help: "Outbound requests by the header rule that matched.",
		}, []string{"rule"})

	LinkImports = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_link_imports_total",
			Help: "Context imports from deep links by outcome.",
		}, []string{"outcome"})

	SliceCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_slice_cache_hits_total",
			Help: "Data slice reads served from cache.",
		}, []string{"slice"})

	SliceCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_slice_cache_misses_total",
			Help: "Data slice reads that went upstream.",
		}, []string{"slice"})

	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_upstream_errors_total",
			Help: "Upstream API failures by status code.",
		}, []string{"status"})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		SessionEvictTotal,
		ResolverDecisions,
		ScopingDecisions,
		LinkImports,
		SliceCacheHits,
		SliceCacheMisses,
		UpstreamErrorsTotal,
	)
}
