// Package contact handles the public contact form.
package contact

import (
	"context"
	"log/slog"
	"time"

	"github.com/sohoz88/promo-site/internal/domain"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
	"github.com/sohoz88/promo-site/internal/ratelimit"
	"github.com/sohoz88/promo-site/internal/repository"
	"github.com/sohoz88/promo-site/internal/validation"
	"github.com/sohoz88/promo-site/pkg/metrics"
)

// Visitor-facing messages.
const (
	MsgSent        = "আপনার বার্তা সফলভাবে পাঠানো হয়েছে। আমরা শীঘ্রই আপনার সাথে যোগাযোগ করবো।"
	MsgInvalid     = "অবৈধ তথ্য। অনুগ্রহ করে ফর্মটি সঠিকভাবে পূরণ করুন।"
	MsgTooMany     = "অনেকবার চেষ্টা করা হয়েছে। অনুগ্রহ করে কিছুক্ষণ পর আবার চেষ্টা করুন।"
	MsgServerError = "একটি আকস্মিক সার্ভার ত্রুটি ঘটেছে। অনুগ্রহ করে কিছুক্ষণ পর আবার চেষ্টা করুন।"
)

// Limits bounds submissions per client. A zero Max disables limiting.
type Limits struct {
	Max    int
	Window time.Duration
}

// Service validates, throttles and stores contact form submissions.
type Service struct {
	repo    repository.ContactRepository
	limiter ratelimit.Limiter
	limits  Limits
	errs    *apperrors.Handler
	log     *slog.Logger
	now     func() time.Time
}

// NewService constructs a new Service instance. limiter may be nil.
func NewService(repo repository.ContactRepository, limiter ratelimit.Limiter, limits Limits, errs *apperrors.Handler, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if errs == nil {
		errs = apperrors.NewHandler(log)
	}

	return &Service{
		repo:    repo,
		limiter: limiter,
		limits:  limits,
		errs:    errs,
		log:     log,
		now:     time.Now,
	}
}

// Submit processes one submission from the client at remote.
func (s *Service) Submit(ctx context.Context, in domain.ContactInput, remote string) domain.ActionResult {
	if fields := validation.Validate(in); fields != nil {
		appErr := s.errs.Handle(ctx, "submit contact form", apperrors.NewValidationError(fields))
		metrics.RecordAction("contact.submit", string(appErr.Kind))
		res := apperrors.Result(appErr)
		res.Error = MsgInvalid
		res.Message = ""
		return res
	}

	if s.throttled(ctx, remote) {
		appErr := s.errs.Handle(ctx, "submit contact form", apperrors.NewRateLimitError(MsgTooMany))
		metrics.RecordAction("contact.submit", string(appErr.Kind))
		res := apperrors.Result(appErr)
		res.Error = MsgTooMany
		return res
	}

	msg := domain.ContactMessage{
		Name:      in.Name,
		Email:     in.Email,
		Subject:   in.Subject,
		Message:   in.Message,
		Remote:    remote,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, &msg); err != nil {
		appErr := s.errs.Handle(ctx, "submit contact form", err)
		metrics.RecordAction("contact.submit", string(appErr.Kind))
		res := apperrors.Result(appErr)
		res.Error = MsgServerError
		return res
	}

	s.log.Info("contact form submitted",
		slog.String("contact_id", msg.ID),
		slog.String("subject", msg.Subject),
	)
	metrics.RecordAction("contact.submit", "success")

	return domain.Succeeded(MsgSent)
}

// throttled fails open: limiter errors other than a rejection let the
// submission through.
func (s *Service) throttled(ctx context.Context, remote string) bool {
	if s.limiter == nil || s.limits.Max <= 0 {
		return false
	}

	res, err := s.limiter.Check(ctx, "contact:"+remote, s.limits.Max, s.limits.Window)
	if ratelimit.Exceeded(res, err) {
		return true
	}
	if err != nil {
		s.log.Warn("contact rate limit check failed", slog.String("remote", remote), slog.Any("error", err))
	}
	return false
}
