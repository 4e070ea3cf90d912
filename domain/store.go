package domain

import (
	"context"
	"iter"
)

// RowStore is the contract of the replicated wide-column store.
//
// UpsertRow writes or replaces the row at (PartitionKey, RowKey). QueryRows yields the
// rows of one partition whose RowKey is greater than after, in RowKey order; an empty
// after yields the whole partition. GetRow returns nil when the row is absent.
//
// Failures are reported as *StoreError wrapping ErrStoreUnavailable or ErrSchemaMismatch.
type RowStore interface {
	UpsertRow(ctx context.Context, view string, row Row) error
	QueryRows(ctx context.Context, view, partition, after string) iter.Seq2[Row, error]
	GetRow(ctx context.Context, view, partition, rowKey string) (*Row, error)
}

// Schema maps a record shape to and from rows of one view.
type Schema[R any] interface {
	View() string
	Encode(rec R) (Row, error)
	Decode(row Row) (R, error)
}

// ViewClient is a typed client for one view.
type ViewClient[R any] struct {
	store  RowStore
	schema Schema[R]
}

func NewViewClient[R any](store RowStore, schema Schema[R]) *ViewClient[R] {
	return &ViewClient[R]{store: store, schema: schema}
}

// View is the name of the view the client writes to.
func (c *ViewClient[R]) View() string { return c.schema.View() }

// Upsert writes rec at its primary key, replacing any existing row.
func (c *ViewClient[R]) Upsert(ctx context.Context, rec R) error {
	row, err := c.schema.Encode(rec)
	if err != nil {
		return SchemaMismatch("upsert", c.schema.View(), err)
	}
	return c.store.UpsertRow(ctx, c.schema.View(), row)
}

// QueryRange yields the records of partition whose clustering value is greater than
// after, in clustering order. The sequence is lazy and re-runs the query each time it is ranged over.
func (c *ViewClient[R]) QueryRange(ctx context.Context, partition, after string) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		var zero R
		for row, err := range c.store.QueryRows(ctx, c.schema.View(), partition, after) {
			if err != nil {
				yield(zero, err)
				return
			}
			rec, err := c.schema.Decode(row)
			if err != nil {
				yield(zero, SchemaMismatch("query", c.schema.View(), err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// QueryExact returns the record at (partition, clustering) or nil when absent.
func (c *ViewClient[R]) QueryExact(ctx context.Context, partition, clustering string) (*R, error) {
	row, err := c.store.GetRow(ctx, c.schema.View(), partition, clustering)
	if err != nil || row == nil {
		return nil, err
	}
	rec, err := c.schema.Decode(*row)
	if err != nil {
		return nil, SchemaMismatch("get", c.schema.View(), err)
	}
	return &rec, nil
}
