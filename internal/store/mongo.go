package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient is the live MongoDB backend.
type MongoClient struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger
}

var _ Client = (*MongoClient)(nil)

// ConnectMongo dials uri, selects dbName and verifies the deployment with a
// ping. The connection is torn down again when the ping fails.
func ConnectMongo(ctx context.Context, uri, dbName string, timeout time.Duration, log *slog.Logger) (*MongoClient, error) {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	mc := &MongoClient{client: client, db: client.Database(dbName), log: log}
	if err := mc.Ping(connectCtx); err != nil {
		disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), timeout)
		defer cancelDisconnect()
		if derr := client.Disconnect(disconnectCtx); derr != nil {
			log.Warn("failed to disconnect after ping failure", slog.Any("error", derr))
		}
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return mc, nil
}

// Mode reports ModeMongo.
func (c *MongoClient) Mode() Mode { return ModeMongo }

// Collection returns a handle to the named MongoDB collection.
func (c *MongoClient) Collection(name string) Collection {
	return &mongoCollection{coll: c.db.Collection(name)}
}

// NewID returns a fresh ObjectID.
func (c *MongoClient) NewID() any {
	return primitive.NewObjectID()
}

// ParseID converts a hex string into an ObjectID.
func (c *MongoClient) ParseID(id string) (any, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidID, id, err)
	}
	return oid, nil
}

// Ping runs the ping command against the selected database.
func (c *MongoClient) Ping(ctx context.Context) error {
	return c.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// Close disconnects from the deployment.
func (c *MongoClient) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (m *mongoCollection) Name() string { return m.coll.Name() }

func (m *mongoCollection) Find(filter Filter) Cursor {
	return newCursor(m.query, filter)
}

func (m *mongoCollection) query(ctx context.Context, q Query) ([]Document, error) {
	opts := options.Find()
	if q.Sort != nil {
		opts.SetSort(bson.D{{Key: q.Sort.Field, Value: int(q.Sort.Direction)}})
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := m.coll.Find(ctx, nonNil(q.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", m.coll.Name(), err)
	}
	defer cur.Close(ctx)

	var docs []Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s cursor: %w", m.coll.Name(), err)
	}

	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, normalize(doc))
	}
	return out, nil
}

func (m *mongoCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	var doc Document
	err := m.coll.FindOne(ctx, nonNil(filter)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find one in %s: %w", m.coll.Name(), err)
	}

	return normalize(doc), nil
}

func (m *mongoCollection) InsertOne(ctx context.Context, doc Document) (*InsertOneResult, error) {
	stored := cloneDocument(doc)
	if stored[IDField] == nil {
		stored[IDField] = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if _, ok := stored["createdAt"]; !ok {
		stored["createdAt"] = now
	}
	if _, ok := stored["updatedAt"]; !ok {
		stored["updatedAt"] = now
	}

	res, err := m.coll.InsertOne(ctx, stored)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", m.coll.Name(), err)
	}

	return &InsertOneResult{Acknowledged: true, InsertedID: res.InsertedID}, nil
}

func (m *mongoCollection) UpdateOne(ctx context.Context, filter Filter, set Document, opts UpdateOptions) (*UpdateResult, error) {
	fields := cloneDocument(set)
	delete(fields, IDField)
	if _, ok := fields["updatedAt"]; !ok {
		fields["updatedAt"] = time.Now().UTC()
	}

	update := bson.M{"$set": fields}
	if opts.Upsert {
		if _, ok := fields["createdAt"]; !ok {
			update["$setOnInsert"] = bson.M{"createdAt": time.Now().UTC()}
		}
	}

	res, err := m.coll.UpdateOne(ctx, nonNil(filter), update, options.Update().SetUpsert(opts.Upsert))
	if err != nil {
		return nil, fmt.Errorf("update in %s: %w", m.coll.Name(), err)
	}

	return &UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

func (m *mongoCollection) DeleteOne(ctx context.Context, filter Filter) (*DeleteResult, error) {
	res, err := m.coll.DeleteOne(ctx, nonNil(filter))
	if err != nil {
		return nil, fmt.Errorf("delete from %s: %w", m.coll.Name(), err)
	}

	return &DeleteResult{DeletedCount: res.DeletedCount}, nil
}

func (m *mongoCollection) CountDocuments(ctx context.Context, filter Filter) (int64, error) {
	n, err := m.coll.CountDocuments(ctx, nonNil(filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", m.coll.Name(), err)
	}
	return n, nil
}

func nonNil(filter Filter) Filter {
	if filter == nil {
		return Filter{}
	}
	return filter
}

// normalize converts driver-specific scalar types into the shapes the
// in-memory backend produces so callers see one document format.
func normalize(doc Document) Document {
	for key, value := range doc {
		if dt, ok := value.(primitive.DateTime); ok {
			doc[key] = dt.Time().UTC()
		}
	}
	return doc
}
