// Package metrics holds Prometheus instruments used across the storefront.
// All collectors are registered with the global registry, so importing this
// package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PreviewEnableTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preview_enable_total",
			Help: "Preview-mode enable attempts by result (enabled, invalid, replayed, error).",
		}, []string{"result"})

	PreviewDisableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "preview_disable_total",
			Help: "Cumulative number of preview sessions cleared.",
		})

	PreviewPerspectiveChangeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "preview_perspective_change_total",
			Help: "Cumulative number of perspective changes accepted.",
		})

	SessionDecodeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_decode_failures_total",
			Help: "Session cookies that failed verification, by cookie name.",
		}, []string{"cookie"})

	DeferredLoadErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deferred_load_errors_total",
			Help: "Deferred loader failures that degraded to an absent value.",
		}, []string{"loader"})

	CMSQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cms_query_duration_seconds",
			Help:    "Latency of CMS content queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"cdn"})

	StorefrontQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_query_duration_seconds",
			Help:    "Latency of commerce Storefront API queries (cache misses only).",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"})

	QueryCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Query cache hits by cache name.",
		}, []string{"cache"})

	QueryCacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_cache_misses_total",
			Help: "Query cache misses by cache name.",
		}, []string{"cache"})
)

func init() {
	prometheus.MustRegister(
		PreviewEnableTotal,
		PreviewDisableTotal,
		PreviewPerspectiveChangeTotal,
		SessionDecodeFailuresTotal,
		DeferredLoadErrorsTotal,
		CMSQueryDuration,
		StorefrontQueryDuration,
		QueryCacheHitsTotal,
		QueryCacheMissesTotal,
	)
}
