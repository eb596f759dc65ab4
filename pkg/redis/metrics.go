package redis

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redisRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_requests_total",
			Help: "Total number of Redis requests by method.",
		},
		[]string{"method"},
	)
	redisErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis errors by method.",
		},
		[]string{"method"},
	)
	redisRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_request_duration_seconds",
			Help:    "Redis request latency distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// MetricsClient wraps a KV to collect Prometheus metrics.
type MetricsClient struct {
	next KV
}

var _ KV = (*MetricsClient)(nil)

// NewMetricsClient creates an instrumented Redis client.
func NewMetricsClient(next KV) *MetricsClient {
	return &MetricsClient{next: next}
}

func observe(method string, fn func() error) error {
	timer := prometheus.NewTimer(redisRequestDuration.WithLabelValues(method))
	err := fn()
	timer.ObserveDuration()
	redisRequestsTotal.WithLabelValues(method).Inc()
	if err != nil && !IsNil(err) {
		redisErrorsTotal.WithLabelValues(method).Inc()
	}
	return err
}

// Get instruments Client.Get. A missing key is not counted as an error.
func (m *MetricsClient) Get(ctx context.Context, key string) (string, error) {
	var result string
	err := observe("get", func() error {
		var err error
		result, err = m.next.Get(ctx, key)
		return err
	})
	return result, err
}

// MGet instruments Client.MGet.
func (m *MetricsClient) MGet(ctx context.Context, keys ...string) ([]any, error) {
	var result []any
	err := observe("mget", func() error {
		var err error
		result, err = m.next.MGet(ctx, keys...)
		return err
	})
	return result, err
}

// Set instruments Client.Set.
func (m *MetricsClient) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return observe("set", func() error {
		return m.next.Set(ctx, key, value, ttl)
	})
}

// Incr instruments Client.Incr.
func (m *MetricsClient) Incr(ctx context.Context, key string) (int64, error) {
	var n int64
	err := observe("incr", func() error {
		var err error
		n, err = m.next.Incr(ctx, key)
		return err
	})
	return n, err
}

// Delete instruments Client.Delete.
func (m *MetricsClient) Delete(ctx context.Context, keys ...string) error {
	return observe("delete", func() error {
		return m.next.Delete(ctx, keys...)
	})
}

// DeleteByPrefix instruments Client.DeleteByPrefix.
func (m *MetricsClient) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := observe("delete_prefix", func() error {
		var err error
		n, err = m.next.DeleteByPrefix(ctx, prefix)
		return err
	})
	return n, err
}

// Ping instruments Client.Ping.
func (m *MetricsClient) Ping(ctx context.Context) error {
	return observe("ping", func() error {
		return m.next.Ping(ctx)
	})
}

// Close closes underlying client.
func (m *MetricsClient) Close() error {
	return m.next.Close()
}
