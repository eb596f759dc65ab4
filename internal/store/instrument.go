package store

import (
	"context"
	"time"

	"github.com/sohoz88/promo-site/pkg/metrics"
)

// Instrument wraps coll so every operation is recorded in the store metrics.
func Instrument(coll Collection) Collection {
	if coll == nil {
		return nil
	}
	if _, ok := coll.(*instrumented); ok {
		return coll
	}
	return &instrumented{inner: coll}
}

type instrumented struct {
	inner Collection
}

func (c *instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(c.inner.Name(), op, err, time.Since(start))
}

func (c *instrumented) Name() string { return c.inner.Name() }

func (c *instrumented) Find(filter Filter) Cursor {
	cur := c.inner.Find(filter)
	run := cur.run
	if run == nil {
		return cur
	}
	cur.run = func(ctx context.Context, q Query) ([]Document, error) {
		start := time.Now()
		docs, err := run(ctx, q)
		c.observe("find", start, err)
		return docs, err
	}
	return cur
}

func (c *instrumented) FindOne(ctx context.Context, filter Filter) (Document, error) {
	start := time.Now()
	doc, err := c.inner.FindOne(ctx, filter)
	c.observe("find_one", start, err)
	return doc, err
}

func (c *instrumented) InsertOne(ctx context.Context, doc Document) (*InsertOneResult, error) {
	start := time.Now()
	res, err := c.inner.InsertOne(ctx, doc)
	c.observe("insert_one", start, err)
	return res, err
}

func (c *instrumented) UpdateOne(ctx context.Context, filter Filter, set Document, opts UpdateOptions) (*UpdateResult, error) {
	start := time.Now()
	res, err := c.inner.UpdateOne(ctx, filter, set, opts)
	c.observe("update_one", start, err)
	return res, err
}

func (c *instrumented) DeleteOne(ctx context.Context, filter Filter) (*DeleteResult, error) {
	start := time.Now()
	res, err := c.inner.DeleteOne(ctx, filter)
	c.observe("delete_one", start, err)
	return res, err
}

func (c *instrumented) CountDocuments(ctx context.Context, filter Filter) (int64, error) {
	start := time.Now()
	n, err := c.inner.CountDocuments(ctx, filter)
	c.observe("count", start, err)
	return n, err
}
