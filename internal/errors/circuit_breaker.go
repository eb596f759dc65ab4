package errors

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var errHalfOpenTooManyRequests = errors.New("too many requests in half-open")

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes when the breaker trips and recovers.
type BreakerConfig struct {
	// FailureRatio trips the breaker once at least MinRequests calls were made.
	FailureRatio float64
	MinRequests  int
	// OpenTimeout is how long the breaker rejects calls before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests successful probes close the breaker.
	HalfOpenRequests int
}

// DefaultBreakerConfig returns the settings used for the page cache.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureRatio:     0.5,
		MinRequests:      10,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 3,
	}
}

// CircuitBreaker stops calling a failing dependency for OpenTimeout.
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	now      func() time.Time
	state    State
	failures int
	requests int
	openedAt time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = def.FailureRatio
	}
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenRequests <= 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}

	return &CircuitBreaker{cfg: cfg, now: time.Now, state: StateClosed}
}

// Call runs fn unless the breaker is open and records its outcome.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.allow(); err != nil {
		return err
	}

	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.reset()
	}

	if cb.state == StateHalfOpen && cb.requests >= cb.cfg.HalfOpenRequests {
		return errHalfOpenTooManyRequests
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	if err != nil {
		cb.failures++
		if cb.state == StateHalfOpen {
			cb.trip()
			return
		}
		if cb.requests >= cb.cfg.MinRequests &&
			float64(cb.failures)/float64(cb.requests) >= cb.cfg.FailureRatio {
			cb.trip()
		}
		return
	}

	if cb.state == StateHalfOpen && cb.requests-cb.failures >= cb.cfg.HalfOpenRequests {
		cb.state = StateClosed
		cb.reset()
	}
}

// State returns the current breaker position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) reset() {
	cb.failures = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = cb.now()
	cb.reset()
}
