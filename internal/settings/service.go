// Package settings implements the site settings actions.
package settings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sohoz88/promo-site/internal/domain"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
	"github.com/sohoz88/promo-site/internal/pagecache"
	"github.com/sohoz88/promo-site/internal/repository"
	"github.com/sohoz88/promo-site/internal/validation"
	"github.com/sohoz88/promo-site/pkg/metrics"
)

// MsgUpdated is returned after a successful update.
const MsgUpdated = "Site settings updated successfully."

// Service reads and writes the site settings singleton.
type Service struct {
	repo  repository.SettingsRepository
	cache pagecache.Cache
	errs  *apperrors.Handler
	log   *slog.Logger
	now   func() time.Time
}

// NewService constructs a new Service instance.
func NewService(repo repository.SettingsRepository, cache pagecache.Cache, errs *apperrors.Handler, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if errs == nil {
		errs = apperrors.NewHandler(log)
	}

	return &Service{
		repo:  repo,
		cache: cache,
		errs:  errs,
		log:   log,
		now:   time.Now,
	}
}

// Get returns the stored settings, or the defaults when none are stored or
// the read fails. It never returns an error.
func (s *Service) Get(ctx context.Context) domain.SiteSettings {
	stored, err := s.repo.Get(ctx)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return domain.DefaultSiteSettings()
	default:
		s.errs.Handle(ctx, "fetch site settings", err)
		return domain.DefaultSiteSettings()
	}

	if stored.BackgroundType == "" || stored.BackgroundValue == "" {
		return domain.DefaultSiteSettings()
	}
	return *stored
}

// Update validates input and upserts the singleton. The background renders
// on every page of the site, so the whole page cache is purged.
func (s *Service) Update(ctx context.Context, in domain.SettingsInput) domain.ActionResult {
	if fields := validation.Validate(in); fields != nil {
		return s.fail(ctx, apperrors.NewValidationError(fields))
	}

	updated := domain.SiteSettings{
		BackgroundType:  in.BackgroundType,
		BackgroundValue: in.BackgroundValue,
		UpdatedAt:       s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, &updated); err != nil {
		return s.fail(ctx, err)
	}

	s.log.Info("site settings updated",
		slog.String("background_type", string(updated.BackgroundType)),
	)

	pagecache.PurgeAll(ctx, s.cache, s.log)
	metrics.RecordAction("settings.update", "success")

	return domain.Succeeded(MsgUpdated)
}

func (s *Service) fail(ctx context.Context, err error) domain.ActionResult {
	appErr := s.errs.Handle(ctx, "update site settings", err)
	metrics.RecordAction("settings.update", string(appErr.Kind))
	return apperrors.Result(appErr)
}
