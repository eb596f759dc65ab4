package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests labeled by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of persistence operations by collection, operation and status",
		},
		[]string{"collection", "operation", "status"},
	)
	storeOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of persistence operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation"},
	)
	storeMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_mode",
			Help: "Active persistence backend (1 for the selected mode)",
		},
		[]string{"mode"},
	)
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_total",
			Help: "Total number of admin/public actions by name and outcome",
		},
		[]string{"action", "outcome"},
	)
	cacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_cache_events_total",
			Help: "Page cache hits, misses and invalidations",
		},
		[]string{"event"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by kind and severity",
		},
		[]string{"kind", "severity"},
	)
)

// RecordHTTPRequest increments request counters and records duration.
func RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}

	httpRequestsTotal.WithLabelValues(route, method, statusLabel(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordStoreOperation tracks a single persistence call.
func RecordStoreOperation(collection, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}

	storeOperationsTotal.WithLabelValues(collection, operation, status).Inc()
	storeOperationDurationSeconds.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// SetStoreMode marks mode as the active backend.
func SetStoreMode(mode string) {
	storeMode.Reset()
	storeMode.WithLabelValues(mode).Set(1)
}

// RecordAction counts action outcomes such as "success" or "not_found".
func RecordAction(action, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}

	actionsTotal.WithLabelValues(action, outcome).Inc()
}

// RecordCacheEvent counts page cache events ("hit", "miss", "invalidate").
func RecordCacheEvent(event string) {
	cacheEventsTotal.WithLabelValues(event).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(kind, severity string) {
	if kind == "" {
		kind = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(kind, severity).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
