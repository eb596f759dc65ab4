package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps one sorted set per client under KeyPrefix. Members are
// random IDs scored by arrival time in milliseconds, so the set cardinality
// after trimming is the number of attempts inside the sliding window.
// Rejected attempts are recorded too and keep a flooding client blocked.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter.
func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLimiter{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

func millis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

// Check records an attempt for key and reports whether it fits in limit.
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("redis client is not configured for rate limiting")
	}

	now := l.now()
	if limit <= 0 {
		return &Result{Allowed: false, ResetAt: now.Add(window)}, nil
	}

	setKey := KeyPrefix + key
	var count *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, setKey, "-inf", fmt.Sprintf("(%f", millis(now.Add(-window))))
		pipe.ZAdd(ctx, setKey, redis.Z{Score: millis(now), Member: uuid.NewString()})
		count = pipe.ZCard(ctx, setKey)
		pipe.Expire(ctx, setKey, 2*window)
		return nil
	})
	if err != nil {
		l.log.Warn("rate limiter pipeline failed", slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("rate limit %s: %w", key, err)
	}

	n := int(count.Val())
	return &Result{
		Allowed:   n <= limit,
		Remaining: max(limit-n, 0),
		ResetAt:   now.Add(window),
	}, nil
}
