package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sohoz88/promo-site/pkg/logger"
	"github.com/sohoz88/promo-site/pkg/metrics"
)

// Handler classifies and logs errors. Severe errors are logged at error
// level, which is what the logger forwards to Sentry when it is enabled, so
// the handler never reports to Sentry itself.
type Handler struct {
	log *slog.Logger
}

func NewHandler(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// Handle logs err and returns the AppError to surface. Errors that are not
// AppErrors are treated as backend failures of the named operation.
func (h *Handler) Handle(ctx context.Context, operation string, err error) *AppError {
	if err == nil {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := slog.Default()
	if h != nil && h.log != nil {
		log = h.log
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		appErr = NewDatabaseError(operation, err)
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("code", appErr.Code),
		slog.String("kind", string(appErr.Kind)),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
	}

	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	metrics.RecordError(string(appErr.Kind), string(appErr.Severity))

	switch appErr.Severity {
	case SeverityHigh, SeverityCritical:
		log.LogAttrs(ctx, slog.LevelError, "application error", attrs...)
	default:
		log.LogAttrs(ctx, slog.LevelWarn, "application error", attrs...)
	}

	return appErr
}
