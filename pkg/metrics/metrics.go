package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by action (login|register) and result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "web3drender_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"action", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "web3drender_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// QueryCacheLookups counts query cache reads by result (hit|miss).
	QueryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "web3drender_query_cache_lookups_total",
			Help: "Total number of query cache lookups",
		},
		[]string{"result"},
	)

	// QueryCacheInvalidations counts removed cache entries by mode (exact|prefix).
	QueryCacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "web3drender_query_cache_invalidations_total",
			Help: "Total number of query cache entries removed by invalidation",
		},
		[]string{"mode"},
	)

	// QueryCacheEntries tracks entries currently held, including expired ones not yet evicted.
	QueryCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "web3drender_query_cache_entries",
			Help: "Number of entries held by the query cache",
		},
	)

	// UploadedBytes counts accepted upload bytes by file category.
	UploadedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "web3drender_uploaded_bytes_total",
			Help: "Total bytes accepted through model uploads",
		},
		[]string{"category"},
	)

	// CoordinateConversions counts georeferencing conversions by direction (to_geographic|to_local).
	CoordinateConversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "web3drender_coordinate_conversions_total",
			Help: "Total number of coordinate conversions",
		},
		[]string{"direction"},
	)

	// MaintenanceRuns records maintenance job executions by job and result.
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "web3drender_maintenance_runs_total",
			Help: "Total number of maintenance job runs",
		},
		[]string{"job", "result"},
	)
)
