package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sohoz88/promo-site/internal/domain"
	"github.com/sohoz88/promo-site/internal/store"
)

// SettingsRepository persists the site settings singleton.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.SiteSettings, error)
	Upsert(ctx context.Context, settings *domain.SiteSettings) error
}

type settingsRepository struct {
	coll store.Collection
	log  *slog.Logger
}

// NewSettingsRepository creates a settings repository over the named collection.
func NewSettingsRepository(client store.Client, collection string, log *slog.Logger) SettingsRepository {
	return &settingsRepository{
		coll: store.Instrument(client.Collection(collection)),
		log:  log,
	}
}

// Get returns ErrNotFound when the singleton has never been written.
func (r *settingsRepository) Get(ctx context.Context) (*domain.SiteSettings, error) {
	doc, err := r.coll.FindOne(ctx, store.Filter{store.IDField: store.SettingsID})
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	return &domain.SiteSettings{
		BackgroundType:  domain.BackgroundType(stringField(doc, "backgroundType")),
		BackgroundValue: stringField(doc, "backgroundValue"),
		UpdatedAt:       timeField(doc, "updatedAt"),
	}, nil
}

// Upsert writes the singleton, creating it on first use.
func (r *settingsRepository) Upsert(ctx context.Context, settings *domain.SiteSettings) error {
	set := store.Document{
		"backgroundType":  string(settings.BackgroundType),
		"backgroundValue": settings.BackgroundValue,
		"updatedAt":       settings.UpdatedAt,
	}

	res, err := r.coll.UpdateOne(ctx, store.Filter{store.IDField: store.SettingsID}, set, store.UpdateOptions{Upsert: true})
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}

	if r.log != nil && res.UpsertedCount > 0 {
		r.log.Info("site settings document created")
	}

	return nil
}
