package repository

import (
	"context"
	"fmt"

	"github.com/sohoz88/promo-site/internal/domain"
	"github.com/sohoz88/promo-site/internal/store"
)

// ContactRepository stores contact form submissions.
type ContactRepository interface {
	Create(ctx context.Context, msg *domain.ContactMessage) error
}

type contactRepository struct {
	client store.Client
	coll   store.Collection
}

// NewContactRepository creates a contact repository over the named collection.
func NewContactRepository(client store.Client, collection string) ContactRepository {
	return &contactRepository{
		client: client,
		coll:   store.Instrument(client.Collection(collection)),
	}
}

func (r *contactRepository) Create(ctx context.Context, msg *domain.ContactMessage) error {
	res, err := r.coll.InsertOne(ctx, store.Document{
		store.IDField: r.client.NewID(),
		"name":        msg.Name,
		"email":       msg.Email,
		"subject":     msg.Subject,
		"message":     msg.Message,
		"remoteAddr":  msg.Remote,
		"createdAt":   msg.CreatedAt,
		"updatedAt":   msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}

	msg.ID = store.FormatID(res.InsertedID)
	return nil
}
