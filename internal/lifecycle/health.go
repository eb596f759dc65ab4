package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sohoz88/promo-site/internal/health"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) (map[string]string, error)
}

// Probes backs the /healthz and /readyz endpoints.
type Probes struct {
	log     *slog.Logger
	checker *health.Checker
}

// NewProbes creates a new Probes instance. A nil checker reports ready.
func NewProbes(log *slog.Logger, checker *health.Checker) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, checker: checker}
}

// Liveness reports success while the process can serve requests.
func (p *Probes) Liveness(ctx context.Context) error {
	p.log.Debug("liveness probe called")
	return nil
}

// Readiness runs every registered dependency check.
func (p *Probes) Readiness(ctx context.Context) (map[string]string, error) {
	if p.checker == nil {
		return map[string]string{}, nil
	}

	results := p.checker.Check(ctx)
	if health.Healthy(results) {
		return results, nil
	}

	failed := make([]string, 0, len(results))
	for name, status := range results {
		if status != health.StatusOK {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)

	return results, fmt.Errorf("not ready: %s", strings.Join(failed, ", "))
}
