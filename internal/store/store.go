// Package store provides a collection-style persistence interface backed by
// either MongoDB or an in-memory mock, chosen once at startup.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mode identifies the active backend.
type Mode string

const (
	// ModeMemory is the non-persistent in-process store.
	ModeMemory Mode = "memory"
	// ModeMongo is a live MongoDB deployment.
	ModeMongo Mode = "mongo"
)

// IDField is the primary key field of every document.
const IDField = "_id"

var (
	// ErrInvalidID indicates that a string cannot be converted to the
	// identifier form required by the active backend.
	ErrInvalidID = errors.New("invalid identifier format")
	// ErrClosed is returned by operations on a closed client.
	ErrClosed = errors.New("store client is closed")
)

// Document is a single stored record.
type Document = bson.M

// Filter selects documents by field equality.
type Filter = bson.M

// InsertOneResult reports the outcome of InsertOne.
type InsertOneResult struct {
	Acknowledged bool
	InsertedID   any
}

// UpdateResult reports the outcome of UpdateOne.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
	UpsertedCount int64
	UpsertedID    any
}

// DeleteResult reports the outcome of DeleteOne.
type DeleteResult struct {
	DeletedCount int64
}

// UpdateOptions tunes UpdateOne.
type UpdateOptions struct {
	// Upsert inserts a new document built from the filter and the set fields
	// when nothing matches.
	Upsert bool
}

// Collection is the uniform document collection contract shared by every backend.
type Collection interface {
	// Name returns the collection name.
	Name() string
	// Find returns a lazy cursor over documents matching filter.
	Find(filter Filter) Cursor
	// FindOne returns the first matching document or nil when nothing matches.
	FindOne(ctx context.Context, filter Filter) (Document, error)
	// InsertOne stores doc, assigning an identifier when it has none.
	InsertOne(ctx context.Context, doc Document) (*InsertOneResult, error)
	// UpdateOne sets the given fields on the first matching document.
	UpdateOne(ctx context.Context, filter Filter, set Document, opts UpdateOptions) (*UpdateResult, error)
	// DeleteOne removes the first matching document.
	DeleteOne(ctx context.Context, filter Filter) (*DeleteResult, error)
	// CountDocuments counts documents matching filter.
	CountDocuments(ctx context.Context, filter Filter) (int64, error)
}

// Client is the resolved persistence handle.
type Client interface {
	// Mode reports which backend is active.
	Mode() Mode
	// Collection returns a handle to the named collection.
	Collection(name string) Collection
	// NewID generates a fresh identifier in the backend's native form.
	NewID() any
	// ParseID converts an external string identifier into the backend's
	// native form. Errors match ErrInvalidID.
	ParseID(id string) (any, error)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close(ctx context.Context) error
}

// FormatID renders a native identifier as its boundary string form.
func FormatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case primitive.ObjectID:
		return v.Hex()
	case *primitive.ObjectID:
		if v == nil {
			return ""
		}
		return v.Hex()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
