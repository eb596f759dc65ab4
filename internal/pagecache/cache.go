// Package pagecache stores rendered public responses keyed by request path
// so that mutations can invalidate exactly the pages they affect.
package pagecache

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/sohoz88/promo-site/internal/errors"
)

// Public page paths.
const (
	PathHome       = "/"
	PathPromotions = "/promotions"
	PathSettings   = "/settings"
)

// Admin page paths.
const (
	PathAdminBonuses  = "/admin/bonuses"
	PathAdminSettings = "/admin/settings"
)

// EditBonusPath returns the admin edit page of a bonus.
func EditBonusPath(id string) string {
	return "/admin/bonuses/edit/" + id
}

// PublicPaths lists every page that renders the site background.
func PublicPaths() []string {
	return []string{PathHome, PathPromotions, PathSettings}
}

// Version identifies the state of a path at the time a page was built.
// Revalidate bumps Gen for the paths it drops and Purge bumps Epoch, so a
// body built before either can be recognised as stale.
type Version struct {
	Epoch int64
	Gen   int64
}

// Cache is a path-keyed response cache.
//
// Callers read the Version before building a page and hand it back to Set.
// A body whose Version was superseded while it was being built is never
// served, which keeps a mutation that lands mid-build from being masked
// for the whole TTL.
type Cache interface {
	// Get returns the cached body for path and whether it was present.
	Get(ctx context.Context, path string) ([]byte, bool)
	// Version returns the current Version of path.
	Version(ctx context.Context, path string) (Version, error)
	// Set stores body for path as built at v. A non-positive ttl keeps it
	// until invalidated.
	Set(ctx context.Context, path string, v Version, body []byte, ttl time.Duration) error
	// Revalidate drops the cached bodies for paths.
	Revalidate(ctx context.Context, paths ...string) error
	// Purge drops every cached body.
	Purge(ctx context.Context) error
}

// Invalidate revalidates paths on c, retrying briefly, and logs failures
// instead of returning them. A nil cache is a no-op.
func Invalidate(ctx context.Context, c Cache, log *slog.Logger, paths ...string) {
	if c == nil || len(paths) == 0 {
		return
	}
	err := apperrors.WithRetry(ctx, apperrors.DefaultRetryPolicy(), func() error {
		return c.Revalidate(ctx, paths...)
	})
	if err != nil && log != nil {
		log.Warn("page cache revalidation failed", slog.Any("paths", paths), slog.Any("error", err))
	}
}

// PurgeAll is Invalidate for every page.
func PurgeAll(ctx context.Context, c Cache, log *slog.Logger) {
	if c == nil {
		return
	}
	err := apperrors.WithRetry(ctx, apperrors.DefaultRetryPolicy(), func() error {
		return c.Purge(ctx)
	})
	if err != nil && log != nil {
		log.Warn("page cache purge failed", slog.Any("error", err))
	}
}
