package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSweepBatch = 100

// Cleaner reclaims limiter sets in Redis. Every set is trimmed to the
// window and sets left empty are deleted; the expiry RedisLimiter sets only
// covers clients that stop arriving altogether.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	interval time.Duration
	window   time.Duration
	batch    int
	now      func() time.Time
}

// NewCleaner creates a Cleaner that sweeps every interval.
func NewCleaner(client *redis.Client, log *slog.Logger, interval, window time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if window <= 0 {
		window = 5 * time.Minute
	}

	return &Cleaner{
		client:   client,
		log:      log,
		interval: interval,
		window:   window,
		batch:    defaultSweepBatch,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.client == nil || c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped")
			return
		case <-ticker.C:
			removed, err := c.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				c.log.Warn("rate limit sweep failed", slog.Int("keys_removed", removed), slog.Any("error", err))
				continue
			}
			if removed > 0 {
				c.log.Debug("rate limit sets reclaimed", slog.Int("keys_removed", removed))
			}
		}
	}
}

// Sweep makes one pass over the limiter keyspace and returns how many sets
// it deleted.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	if c.client == nil {
		return 0, nil
	}

	cutoff := fmt.Sprintf("(%f", millis(c.now().Add(-c.window)))
	iter := c.client.Scan(ctx, 0, KeyPrefix+"*", int64(c.batch)).Iterator()

	removed := 0
	keys := make([]string, 0, c.batch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) < c.batch {
			continue
		}
		n, err := c.sweepKeys(ctx, keys, cutoff)
		removed += n
		if err != nil {
			return removed, err
		}
		keys = keys[:0]
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan %s*: %w", KeyPrefix, err)
	}

	n, err := c.sweepKeys(ctx, keys, cutoff)
	return removed + n, err
}

// sweepKeys trims keys in one round trip and deletes the ones left empty.
// Keys holding something other than a sorted set are skipped.
func (c *Cleaner) sweepKeys(ctx context.Context, keys []string, cutoff string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	cards := make([]*redis.IntCmd, len(keys))
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
			cards[i] = pipe.ZCard(ctx, key)
		}
		return nil
	})
	var reply redis.Error
	if err != nil && !errors.As(err, &reply) {
		return 0, fmt.Errorf("trim limiter sets: %w", err)
	}

	var empty []string
	for i, card := range cards {
		n, err := card.Result()
		if err != nil {
			c.log.Debug("skipping limiter key", slog.String("key", keys[i]), slog.Any("error", err))
			continue
		}
		if n == 0 {
			empty = append(empty, keys[i])
		}
	}
	if len(empty) == 0 {
		return 0, nil
	}

	deleted, err := c.client.Del(ctx, empty...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete empty limiter sets: %w", err)
	}
	return int(deleted), nil
}
