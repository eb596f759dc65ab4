package store

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryClient is the in-process mock backend. Data lives only as long as
// the process.
type MemoryClient struct {
	mu     sync.Mutex
	data   map[string][]Document
	log    *slog.Logger
	now    func() time.Time
	closed bool
}

var _ Client = (*MemoryClient)(nil)

// MemoryOption configures a MemoryClient.
type MemoryOption func(*MemoryClient)

// WithClock overrides the time source used for server-assigned timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryClient) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSeed stores docs in collection before first use.
func WithSeed(collection string, docs ...Document) MemoryOption {
	return func(c *MemoryClient) {
		for _, doc := range docs {
			c.data[collection] = append(c.data[collection], cloneDocument(doc))
		}
	}
}

// NewMemoryClient creates an empty in-memory backend.
func NewMemoryClient(log *slog.Logger, opts ...MemoryOption) *MemoryClient {
	if log == nil {
		log = slog.Default()
	}

	c := &MemoryClient{
		data: make(map[string][]Document),
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Mode reports ModeMemory.
func (c *MemoryClient) Mode() Mode { return ModeMemory }

// Collection returns a handle to the named in-memory collection, creating it on first use.
func (c *MemoryClient) Collection(name string) Collection {
	c.mu.Lock()
	if _, ok := c.data[name]; !ok {
		c.data[name] = []Document{}
	}
	c.mu.Unlock()

	return &memoryCollection{client: c, name: name}
}

// NewID returns a string identifier unique within the process.
func (c *MemoryClient) NewID() any {
	return newMockID("mockid")
}

// ParseID passes identifiers through unchanged; mock mode uses plain strings.
func (c *MemoryClient) ParseID(id string) (any, error) {
	return id, nil
}

// Ping always succeeds while the client is open.
func (c *MemoryClient) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the client closed. Stored data is discarded.
func (c *MemoryClient) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.data = make(map[string][]Document)
	c.log.Debug("in-memory store closed, data discarded")
	return nil
}

type memoryCollection struct {
	client *MemoryClient
	name   string
}

func (m *memoryCollection) Name() string { return m.name }

func (m *memoryCollection) Find(filter Filter) Cursor {
	return newCursor(m.query, filter)
}

func (m *memoryCollection) query(_ context.Context, q Query) ([]Document, error) {
	c := m.client
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	matched := make([]Document, 0)
	for _, doc := range c.data[m.name] {
		if matches(doc, q.Filter) {
			matched = append(matched, cloneDocument(doc))
		}
	}
	c.mu.Unlock()

	if q.Sort != nil {
		field, dir := q.Sort.Field, q.Sort.Direction
		sort.SliceStable(matched, func(i, j int) bool {
			cmp := compareValues(matched[i][field], matched[j][field])
			if dir == Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Skip > 0 {
		if q.Skip >= int64(len(matched)) {
			matched = matched[:0]
		} else {
			matched = matched[q.Skip:]
		}
	}
	if q.Limit > 0 && q.Limit < int64(len(matched)) {
		matched = matched[:q.Limit]
	}

	return matched, nil
}

func (m *memoryCollection) FindOne(_ context.Context, filter Filter) (Document, error) {
	c := m.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	for _, doc := range c.data[m.name] {
		if matches(doc, filter) {
			return cloneDocument(doc), nil
		}
	}

	return nil, nil
}

func (m *memoryCollection) InsertOne(_ context.Context, doc Document) (*InsertOneResult, error) {
	c := m.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	stored := cloneDocument(doc)
	if stored[IDField] == nil {
		stored[IDField] = newMockID("mockid")
	}
	now := c.now()
	if _, ok := stored["createdAt"]; !ok {
		stored["createdAt"] = now
	}
	if _, ok := stored["updatedAt"]; !ok {
		stored["updatedAt"] = now
	}

	c.data[m.name] = append(c.data[m.name], stored)

	return &InsertOneResult{Acknowledged: true, InsertedID: stored[IDField]}, nil
}

func (m *memoryCollection) UpdateOne(_ context.Context, filter Filter, set Document, opts UpdateOptions) (*UpdateResult, error) {
	c := m.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	for _, doc := range c.data[m.name] {
		if !matches(doc, filter) {
			continue
		}

		modified := false
		for key, value := range set {
			if key == IDField {
				continue
			}
			if key != "updatedAt" && !reflect.DeepEqual(doc[key], value) {
				modified = true
			}
			doc[key] = value
		}
		if _, ok := set["updatedAt"]; !ok {
			doc["updatedAt"] = c.now()
		}

		result := &UpdateResult{MatchedCount: 1}
		if modified {
			result.ModifiedCount = 1
		}
		return result, nil
	}

	if !opts.Upsert {
		return &UpdateResult{}, nil
	}

	now := c.now()
	created := cloneDocument(set)
	for key, value := range filter {
		created[key] = value
	}
	if created[IDField] == nil {
		created[IDField] = newMockID("mockid-upsert")
	}
	if _, ok := created["createdAt"]; !ok {
		created["createdAt"] = now
	}
	if _, ok := created["updatedAt"]; !ok {
		created["updatedAt"] = now
	}
	c.data[m.name] = append(c.data[m.name], created)

	return &UpdateResult{UpsertedCount: 1, UpsertedID: created[IDField]}, nil
}

func (m *memoryCollection) DeleteOne(_ context.Context, filter Filter) (*DeleteResult, error) {
	c := m.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	docs := c.data[m.name]
	for i, doc := range docs {
		if matches(doc, filter) {
			c.data[m.name] = append(docs[:i:i], docs[i+1:]...)
			return &DeleteResult{DeletedCount: 1}, nil
		}
	}

	return &DeleteResult{}, nil
}

func (m *memoryCollection) CountDocuments(_ context.Context, filter Filter) (int64, error) {
	c := m.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	var n int64
	for _, doc := range c.data[m.name] {
		if matches(doc, filter) {
			n++
		}
	}

	return n, nil
}

func newMockID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix)
}

// matches reports whether every filter field equals the document field.
// Identifiers compare by their string form so ObjectIDs and strings mix.
func matches(doc Document, filter Filter) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if key == IDField {
			if !ok || FormatID(got) != FormatID(want) {
				return false
			}
			continue
		}
		if !ok {
			if want != nil {
				return false
			}
			continue
		}
		if compareValues(got, want) != 0 {
			return false
		}
	}

	return true
}

// compareValues orders two field values. Missing values sort first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case time.Time:
		if bv, ok := asTime(b); ok {
			return av.Compare(bv)
		}
	case primitive.DateTime:
		if bv, ok := asTime(b); ok {
			return av.Time().Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}

	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if reflect.DeepEqual(a, b) {
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	default:
		return time.Time{}, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cloneDocument(doc Document) Document {
	if doc == nil {
		return Document{}
	}

	copied := make(Document, len(doc))
	for k, v := range doc {
		copied[k] = v
	}
	return copied
}
