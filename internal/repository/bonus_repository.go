package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sohoz88/promo-site/internal/domain"
	"github.com/sohoz88/promo-site/internal/store"
)

// ErrNotFound is returned when no document matches the requested identifier.
var ErrNotFound = errors.New("document not found")

// BonusRepository defines persistence operations for bonuses.
type BonusRepository interface {
	List(ctx context.Context, onlyActive bool) ([]domain.Bonus, error)
	FindByID(ctx context.Context, id string) (*domain.Bonus, error)
	Create(ctx context.Context, bonus *domain.Bonus) error
	Replace(ctx context.Context, bonus *domain.Bonus) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, onlyActive bool) (int64, error)
}

type bonusRepository struct {
	client store.Client
	coll   store.Collection
	log    *slog.Logger
}

// NewBonusRepository creates a bonus repository over the named collection.
// Identifier errors from the client match store.ErrInvalidID.
func NewBonusRepository(client store.Client, collection string, log *slog.Logger) BonusRepository {
	return &bonusRepository{
		client: client,
		coll:   store.Instrument(client.Collection(collection)),
		log:    log,
	}
}

// List returns bonuses ordered newest first.
func (r *bonusRepository) List(ctx context.Context, onlyActive bool) ([]domain.Bonus, error) {
	filter := store.Filter{}
	if onlyActive {
		filter["isActive"] = true
	}

	docs, err := r.coll.Find(filter).Sort("createdAt", store.Descending).ToArray(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bonuses: %w", err)
	}

	bonuses := make([]domain.Bonus, 0, len(docs))
	for _, doc := range docs {
		bonuses = append(bonuses, bonusFromDocument(doc))
	}

	return bonuses, nil
}

// FindByID returns ErrNotFound when nothing matches.
func (r *bonusRepository) FindByID(ctx context.Context, id string) (*domain.Bonus, error) {
	key, err := r.client.ParseID(id)
	if err != nil {
		return nil, err
	}

	doc, err := r.coll.FindOne(ctx, store.Filter{store.IDField: key})
	if err != nil {
		return nil, fmt.Errorf("find bonus %s: %w", id, err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	bonus := bonusFromDocument(doc)
	return &bonus, nil
}

// Create inserts bonus and fills in its identifier.
func (r *bonusRepository) Create(ctx context.Context, bonus *domain.Bonus) error {
	doc := bonusToDocument(bonus)
	doc[store.IDField] = r.client.NewID()
	doc["createdAt"] = bonus.CreatedAt
	doc["updatedAt"] = bonus.UpdatedAt

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert bonus: %w", err)
	}

	bonus.ID = store.FormatID(res.InsertedID)
	if r.log != nil {
		r.log.Debug("bonus stored", slog.String("bonus_id", bonus.ID))
	}

	return nil
}

// Replace overwrites every mutable field of the stored bonus. createdAt is
// never touched.
func (r *bonusRepository) Replace(ctx context.Context, bonus *domain.Bonus) error {
	key, err := r.client.ParseID(bonus.ID)
	if err != nil {
		return err
	}

	set := bonusToDocument(bonus)
	set["updatedAt"] = bonus.UpdatedAt

	res, err := r.coll.UpdateOne(ctx, store.Filter{store.IDField: key}, set, store.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("update bonus %s: %w", bonus.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes the bonus with id.
func (r *bonusRepository) Delete(ctx context.Context, id string) error {
	key, err := r.client.ParseID(id)
	if err != nil {
		return err
	}

	res, err := r.coll.DeleteOne(ctx, store.Filter{store.IDField: key})
	if err != nil {
		return fmt.Errorf("delete bonus %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// Count returns the number of stored bonuses.
func (r *bonusRepository) Count(ctx context.Context, onlyActive bool) (int64, error) {
	filter := store.Filter{}
	if onlyActive {
		filter["isActive"] = true
	}

	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count bonuses: %w", err)
	}
	return n, nil
}

func bonusToDocument(b *domain.Bonus) store.Document {
	return store.Document{
		"title":               b.Title,
		"description":         b.Description,
		"turnoverRequirement": b.TurnoverRequirement,
		"imageUrl":            b.ImageURL,
		"ctaLink":             b.CTALink,
		"isActive":            b.IsActive,
	}
}

func bonusFromDocument(doc store.Document) domain.Bonus {
	return domain.Bonus{
		ID:                  store.FormatID(doc[store.IDField]),
		Title:               stringField(doc, "title"),
		Description:         stringField(doc, "description"),
		TurnoverRequirement: stringField(doc, "turnoverRequirement"),
		ImageURL:            stringField(doc, "imageUrl"),
		CTALink:             stringField(doc, "ctaLink"),
		IsActive:            boolField(doc, "isActive"),
		CreatedAt:           timeField(doc, "createdAt"),
		UpdatedAt:           timeField(doc, "updatedAt"),
	}
}

func stringField(doc store.Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func boolField(doc store.Document, key string) bool {
	b, _ := doc[key].(bool)
	return b
}

func timeField(doc store.Document, key string) time.Time {
	switch v := doc[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
