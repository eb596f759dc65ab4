package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Shutdown runs named hooks in registration order. The HTTP server is
// registered first so in-flight requests finish before the store closes.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	done  bool
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named shutdown hook.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	s.RegisterWithTimeout(name, 0, fn)
}

// RegisterWithTimeout adds a hook bounded by timeout.
func (s *Shutdown) RegisterWithTimeout(name string, timeout time.Duration, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn, Timeout: timeout})
}

// Execute runs every hook once, even when earlier hooks fail. Subsequent
// calls are no-ops.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var errs []error
	for _, h := range hooks {
		if err := s.run(ctx, h); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
		}
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}

func (s *Shutdown) run(ctx context.Context, h Hook) error {
	var (
		hookCtx context.Context
		cancel  context.CancelFunc
	)
	if h.Timeout > 0 {
		hookCtx, cancel = context.WithTimeout(ctx, h.Timeout)
	} else {
		hookCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	s.log.Info("running shutdown hook", slog.String("hook", h.Name))

	if err := h.Fn(hookCtx); err != nil {
		s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
		return err
	}

	s.log.Info("shutdown hook completed", slog.String("hook", h.Name))
	return nil
}
