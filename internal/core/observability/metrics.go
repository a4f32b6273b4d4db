// Package observability exposes prometheus metrics for the insight service.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_cache_results_total",
			Help: "Insight cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_store_ops_total",
			Help: "Second-level cache store operations by result.",
		},
		[]string{"op", "ok"},
	)

	summaryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_summary_total",
			Help: "Generated summaries by producing provider.",
		},
		[]string{"provider"},
	)

	deltaMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_delta_merges_total",
			Help: "Realtime metrics delta events by merge outcome.",
		},
		[]string{"outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

// Cache outcomes: "hit" served from a fresh entry, "miss" invoked the loader,
// "inflight_join" piggybacked on a concurrent load, "l2_hit" served from the
// shared cache layer.
func IncCacheResult(outcome string) {
	cacheResults.WithLabelValues(outcome).Inc()
}

func ObserveCacheOp(op string, err error) {
	ok := "true"
	if err != nil {
		ok = "false"
	}
	cacheOps.WithLabelValues(op, ok).Inc()
}

func IncSummary(provider string) {
	summaryTotal.WithLabelValues(provider).Inc()
}

func IncDeltaMerge(outcome string) {
	deltaMergesTotal.WithLabelValues(outcome).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
