package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Buckets cover sub-millisecond inserts up to the multi-second connect timeouts
	CustomAPIBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13}

	// HTTP Metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Database Client Metrics
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Database client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	DBOperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of database client operations",
		},
		[]string{"operation", "status"},
	)

	// Connection Pool Metrics
	PoolConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_client_connections_in_use",
			Help: "Connections currently acquired from the pool",
		},
	)

	PoolConnectionsMax = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_client_connections_max",
			Help: "Configured maximum number of pooled connections",
		},
	)

	PoolAcquireDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_connection_acquire_duration_seconds",
			Help:    "Time spent waiting to acquire a pooled connection",
			Buckets: CustomAPIBuckets,
		},
		[]string{"status"},
	)

	// Business Metrics
	LeadSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_qualified_submissions_total",
			Help: "Total number of qualified lead submissions by outcome",
		},
		[]string{"status"},
	)

	RateLimitVisitors = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leads_rate_limit_visitors",
			Help: "Number of client IPs currently tracked by a rate limiter",
		},
		[]string{"limiter"},
	)

	ConnectionTests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_connection_tests_total",
			Help: "Total number of backend connection tests by outcome",
		},
		[]string{"status"},
	)

	// Infrastructure Metrics
	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)
)

// RecordInfrastructureMetrics collects infrastructure metrics until stop is closed
func RecordInfrastructureMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var m runtime.MemStats
				runtime.ReadMemStats(&m)

				GoRoutines.Set(float64(runtime.NumGoroutine()))
				HeapAlloc.Set(float64(m.HeapAlloc))
			}
		}
	}()
}

// RecordDBOperation records a database operation outcome
func RecordDBOperation(operation, status string, duration float64) {
	DBOperationDuration.WithLabelValues(operation, status).Observe(duration)
	DBOperationTotal.WithLabelValues(operation, status).Inc()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}
