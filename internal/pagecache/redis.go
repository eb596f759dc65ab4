package pagecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/sohoz88/promo-site/internal/errors"
	"github.com/sohoz88/promo-site/pkg/metrics"
	"github.com/sohoz88/promo-site/pkg/redis"
)

// KeyPrefix namespaces cached pages in Redis.
const KeyPrefix = "pagecache:"

const (
	epochKey      = KeyPrefix + "epoch"
	versionPrefix = KeyPrefix + "version:"
	pagePrefix    = KeyPrefix + "page:"
)

// PageKey is the Redis key holding the body cached for path.
func PageKey(path string) string {
	return pagePrefix + path
}

func versionKey(path string) string {
	return versionPrefix + path
}

// RedisCache stores pages in Redis so every replica shares invalidations.
// Bodies are stored as "<epoch>:<gen>:<body>" and only served while both
// counters still match. Reads and writes go through a circuit breaker so an
// unhealthy Redis turns into cache misses instead of per-request latency.
// Invalidations always reach Redis.
type RedisCache struct {
	kv      redis.KV
	log     *slog.Logger
	breaker *apperrors.CircuitBreaker
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(kv redis.KV, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}
	return &RedisCache{
		kv:      kv,
		log:     log,
		breaker: apperrors.NewCircuitBreaker(apperrors.DefaultBreakerConfig()),
	}
}

func parseCounter(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected counter value %T", v)
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseVersion(epoch, gen any) (Version, error) {
	e, err := parseCounter(epoch)
	if err != nil {
		return Version{}, fmt.Errorf("epoch: %w", err)
	}
	g, err := parseCounter(gen)
	if err != nil {
		return Version{}, fmt.Errorf("version: %w", err)
	}
	return Version{Epoch: e, Gen: g}, nil
}

func encodeBody(v Version, body []byte) string {
	return strconv.FormatInt(v.Epoch, 10) + ":" + strconv.FormatInt(v.Gen, 10) + ":" + string(body)
}

func decodeBody(raw string) (Version, string, bool) {
	epoch, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return Version{}, "", false
	}
	gen, body, ok := strings.Cut(rest, ":")
	if !ok {
		return Version{}, "", false
	}
	e, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return Version{}, "", false
	}
	g, err := strconv.ParseInt(gen, 10, 64)
	if err != nil {
		return Version{}, "", false
	}
	return Version{Epoch: e, Gen: g}, body, true
}

// Get treats Redis failures and superseded bodies as misses.
func (c *RedisCache) Get(ctx context.Context, path string) ([]byte, bool) {
	var (
		body  string
		found bool
	)
	err := c.breaker.Call(func() error {
		values, err := c.kv.MGet(ctx, epochKey, versionKey(path), PageKey(path))
		if err != nil {
			return err
		}
		if len(values) != 3 || values[2] == nil {
			return nil
		}

		current, err := parseVersion(values[0], values[1])
		if err != nil {
			return err
		}
		raw, _ := values[2].(string)
		built, b, ok := decodeBody(raw)
		if ok && built == current {
			body, found = b, true
		}
		return nil
	})
	if err != nil && !errors.Is(err, apperrors.ErrCircuitOpen) {
		c.log.Warn("page cache read failed", slog.String("path", path), slog.Any("error", err))
	}
	if !found {
		metrics.RecordCacheEvent("miss")
		return nil, false
	}

	metrics.RecordCacheEvent("hit")
	return []byte(body), true
}

func (c *RedisCache) Version(ctx context.Context, path string) (Version, error) {
	var v Version
	err := c.breaker.Call(func() error {
		values, err := c.kv.MGet(ctx, epochKey, versionKey(path))
		if err != nil {
			return err
		}
		if len(values) != 2 {
			return fmt.Errorf("unexpected reply length %d", len(values))
		}
		v, err = parseVersion(values[0], values[1])
		return err
	})
	if err != nil {
		return Version{}, fmt.Errorf("page version %s: %w", path, err)
	}
	return v, nil
}

// Set stores body tagged with v. A tag that is already superseded is
// harmless because Get compares it against the live counters.
func (c *RedisCache) Set(ctx context.Context, path string, v Version, body []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	err := c.breaker.Call(func() error {
		return c.kv.Set(ctx, PageKey(path), encodeBody(v, body), ttl)
	})
	if err != nil {
		return fmt.Errorf("cache page %s: %w", path, err)
	}
	return nil
}

// Revalidate bumps the version of each path before deleting its body, so
// pages still being built against the old version are never served.
func (c *RedisCache) Revalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	metrics.RecordCacheEvent("invalidate")
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := c.kv.Incr(ctx, versionKey(p)); err != nil {
			return fmt.Errorf("revalidate %s: %w", p, err)
		}
		keys = append(keys, PageKey(p))
	}

	if err := c.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("revalidate %v: %w", paths, err)
	}
	return nil
}

// Purge bumps the epoch, which supersedes every stored body, then reclaims
// the page keys.
func (c *RedisCache) Purge(ctx context.Context) error {
	metrics.RecordCacheEvent("purge")
	if _, err := c.kv.Incr(ctx, epochKey); err != nil {
		return fmt.Errorf("purge page cache: %w", err)
	}

	n, err := c.kv.DeleteByPrefix(ctx, pagePrefix)
	if err != nil {
		return fmt.Errorf("purge page cache: %w", err)
	}

	c.log.Debug("page cache purged", slog.Int64("keys", n))
	return nil
}
