// Package bonus implements the admin actions over promotional bonuses.
package bonus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sohoz88/promo-site/internal/domain"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
	"github.com/sohoz88/promo-site/internal/pagecache"
	"github.com/sohoz88/promo-site/internal/repository"
	"github.com/sohoz88/promo-site/internal/store"
	"github.com/sohoz88/promo-site/internal/validation"
	"github.com/sohoz88/promo-site/pkg/metrics"
)

// User-facing action messages.
const (
	MsgCreated        = "Bonus created successfully."
	MsgUpdated        = "Bonus updated successfully."
	MsgDeleted        = "Bonus deleted successfully."
	MsgUpdateNotFound = "Bonus not found. It may have been deleted."
	MsgDeleteNotFound = "Bonus not found or already deleted."
)

const entityName = "Bonus"

// Service provides the bonus actions consumed by the HTTP layer.
type Service struct {
	repo  repository.BonusRepository
	cache pagecache.Cache
	errs  *apperrors.Handler
	log   *slog.Logger
	now   func() time.Time
	mode  store.Mode
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreMode records the active backend for Stats.
func WithStoreMode(mode store.Mode) Option {
	return func(s *Service) {
		s.mode = mode
	}
}

// NewService constructs a new Service instance.
func NewService(repo repository.BonusRepository, cache pagecache.Cache, errs *apperrors.Handler, log *slog.Logger, opts ...Option) *Service {
	if log == nil {
		log = slog.Default()
	}
	if errs == nil {
		errs = apperrors.NewHandler(log)
	}

	s := &Service{
		repo:  repo,
		cache: cache,
		errs:  errs,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create validates input and stores a new bonus.
func (s *Service) Create(ctx context.Context, in domain.BonusInput) domain.ActionResult {
	if fields := validation.Validate(in); fields != nil {
		return s.fail(ctx, "create", "create bonus", apperrors.NewValidationError(fields))
	}

	now := s.now().UTC()
	b := newBonus(in)
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.repo.Create(ctx, &b); err != nil {
		return s.fail(ctx, "create", "create bonus", err)
	}

	s.log.Info("bonus created", slog.String("bonus_id", b.ID), slog.String("title", b.Title))
	pagecache.Invalidate(ctx, s.cache, s.log,
		pagecache.PathAdminBonuses, pagecache.PathHome, pagecache.PathPromotions)
	metrics.RecordAction("bonus.create", "success")

	res := domain.Succeeded(MsgCreated)
	res.BonusID = b.ID
	return res
}

// Update replaces every mutable field of the bonus with id.
func (s *Service) Update(ctx context.Context, id string, in domain.BonusInput) domain.ActionResult {
	s.log.Debug("update bonus requested",
		slog.String("bonus_id", id),
		slog.String("image", summarizeImage(in.ImageURL)),
	)

	if fields := validation.Validate(in); fields != nil {
		return s.fail(ctx, "update", "update bonus", apperrors.NewValidationError(fields))
	}

	b := newBonus(in)
	b.ID = id
	b.UpdatedAt = s.now().UTC()

	err := s.repo.Replace(ctx, &b)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInvalidID):
		return s.fail(ctx, "update", "update bonus", apperrors.NewInvalidIDError(entityName, id, err))
	case errors.Is(err, repository.ErrNotFound):
		return s.fail(ctx, "update", "update bonus", apperrors.NewNotFoundError("bonus", MsgUpdateNotFound))
	default:
		return s.fail(ctx, "update", "update bonus", err)
	}

	s.log.Info("bonus updated", slog.String("bonus_id", id))
	pagecache.Invalidate(ctx, s.cache, s.log, mutationPaths(id)...)
	metrics.RecordAction("bonus.update", "success")

	return domain.Succeeded(MsgUpdated)
}

// Delete removes the bonus with id. Malformed identifiers report not found.
func (s *Service) Delete(ctx context.Context, id string) domain.ActionResult {
	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInvalidID), errors.Is(err, repository.ErrNotFound):
		return s.fail(ctx, "delete", "delete bonus", apperrors.NewNotFoundError("bonus", MsgDeleteNotFound))
	default:
		return s.fail(ctx, "delete", "delete bonus", err)
	}

	s.log.Info("bonus deleted", slog.String("bonus_id", id))
	pagecache.Invalidate(ctx, s.cache, s.log, mutationPaths(id)...)
	metrics.RecordAction("bonus.delete", "success")

	return domain.Succeeded(MsgDeleted)
}

// List returns all bonuses newest first. Failures yield an empty list.
func (s *Service) List(ctx context.Context) []domain.Bonus {
	return s.list(ctx, false)
}

// ListActive returns the bonuses shown on the public site, newest first.
func (s *Service) ListActive(ctx context.Context) []domain.Bonus {
	return s.list(ctx, true)
}

func (s *Service) list(ctx context.Context, onlyActive bool) []domain.Bonus {
	bonuses, err := s.repo.List(ctx, onlyActive)
	if err != nil {
		s.errs.Handle(ctx, "list bonuses", err)
		return []domain.Bonus{}
	}
	return bonuses
}

// GetByID returns the bonus or nil when it does not exist, the identifier is
// malformed, or the lookup fails.
func (s *Service) GetByID(ctx context.Context, id string) *domain.Bonus {
	b, err := s.repo.FindByID(ctx, id)
	switch {
	case err == nil:
		return b
	case errors.Is(err, store.ErrInvalidID):
		s.log.Debug("bonus lookup with malformed id", slog.String("bonus_id", id))
	case errors.Is(err, repository.ErrNotFound):
	default:
		s.errs.Handle(ctx, "fetch bonus", err)
	}
	return nil
}

// Stats counts stored bonuses for the admin dashboard.
func (s *Service) Stats(ctx context.Context) domain.BonusStats {
	stats := domain.BonusStats{StoreMode: string(s.mode)}

	total, err := s.repo.Count(ctx, false)
	if err != nil {
		s.errs.Handle(ctx, "count bonuses", err)
		return stats
	}
	active, err := s.repo.Count(ctx, true)
	if err != nil {
		s.errs.Handle(ctx, "count bonuses", err)
		return stats
	}

	stats.TotalBonuses = total
	stats.ActiveBonuses = active
	return stats
}

func (s *Service) fail(ctx context.Context, action, operation string, err error) domain.ActionResult {
	appErr := s.errs.Handle(ctx, operation, err)
	metrics.RecordAction("bonus."+action, string(appErr.Kind))
	return apperrors.Result(appErr)
}

func newBonus(in domain.BonusInput) domain.Bonus {
	return domain.Bonus{
		Title:               in.Title,
		Description:         in.Description,
		TurnoverRequirement: in.TurnoverRequirement,
		ImageURL:            in.ImageURL,
		CTALink:             in.CTALink,
		IsActive:            in.Active(),
	}
}

func mutationPaths(id string) []string {
	return []string{
		pagecache.PathAdminBonuses,
		pagecache.EditBonusPath(id),
		pagecache.PathHome,
		pagecache.PathPromotions,
	}
}

// summarizeImage keeps inline payloads out of the logs.
func summarizeImage(v string) string {
	if strings.HasPrefix(v, "data:image/") {
		return fmt.Sprintf("data URI (length: %d)", len(v))
	}
	return v
}
