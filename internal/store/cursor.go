package store

import "context"

// SortDirection orders cursor results.
type SortDirection int

const (
	Ascending  SortDirection = 1
	Descending SortDirection = -1
)

// Sort is a single-key sort specification.
type Sort struct {
	Field     string
	Direction SortDirection
}

// Query is the accumulated description of a Find call.
type Query struct {
	Filter Filter
	Sort   *Sort
	Skip   int64
	// Limit of zero means no limit.
	Limit int64
}

type queryFunc func(ctx context.Context, q Query) ([]Document, error)

// Cursor is an immutable query builder. Sort, Skip and Limit return new
// cursors; ToArray executes the accumulated query. Skip is applied before
// Limit regardless of call order.
type Cursor struct {
	run   queryFunc
	query Query
}

func newCursor(run queryFunc, filter Filter) Cursor {
	return Cursor{run: run, query: Query{Filter: filter}}
}

// Sort orders results by a single field.
func (c Cursor) Sort(field string, direction SortDirection) Cursor {
	if direction != Ascending && direction != Descending {
		direction = Ascending
	}
	c.query.Sort = &Sort{Field: field, Direction: direction}
	return c
}

// Limit caps the number of returned documents. Non-positive values clear it.
func (c Cursor) Limit(n int64) Cursor {
	if n < 0 {
		n = 0
	}
	c.query.Limit = n
	return c
}

// Skip drops the first n matching documents.
func (c Cursor) Skip(n int64) Cursor {
	if n < 0 {
		n = 0
	}
	c.query.Skip = n
	return c
}

// Query returns the accumulated query description.
func (c Cursor) Query() Query {
	return c.query
}

// ToArray executes the query and materialises every result.
func (c Cursor) ToArray(ctx context.Context) ([]Document, error) {
	if c.run == nil {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return c.run(ctx, c.query)
}
