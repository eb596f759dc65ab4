// Package ratelimit throttles public form submissions per client.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// KeyPrefix namespaces limiter keys in Redis.
const KeyPrefix = "ratelimit:"

// Result captures the outcome of a rate-limit evaluation.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter describes a rate-limiting strategy interface.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// ErrLimitExceeded indicates the rate limit has been reached for the key.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Exceeded reports whether a Check outcome means the caller must be throttled.
func Exceeded(res *Result, err error) bool {
	if errors.Is(err, ErrLimitExceeded) {
		return true
	}
	return err == nil && res != nil && !res.Allowed
}
