package domain

import (
	"context"
	"iter"
	"maps"
	"sort"
	"sync"
)

type fakeStore struct {
	mu      sync.Mutex
	views   map[string]map[string]map[string]Row
	upserts map[string]int
	// failUpsert returns the error for the nth upsert (1-based) of a view, or nil.
	failUpsert func(view string, n int) error
	queryErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{views: map[string]map[string]map[string]Row{}, upserts: map[string]int{}}
}

func (f *fakeStore) UpsertRow(ctx context.Context, view string, row Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts[view]++
	if f.failUpsert != nil {
		if err := f.failUpsert(view, f.upserts[view]); err != nil {
			return err
		}
	}
	parts, ok := f.views[view]
	if !ok {
		parts = map[string]map[string]Row{}
		f.views[view] = parts
	}
	rows, ok := parts[row.PartitionKey]
	if !ok {
		rows = map[string]Row{}
		parts[row.PartitionKey] = rows
	}
	row.Columns = maps.Clone(row.Columns)
	rows[row.RowKey] = row
	return nil
}

func (f *fakeStore) QueryRows(ctx context.Context, view, partition, after string) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if f.queryErr != nil {
			yield(Row{}, f.queryErr)
			return
		}
		f.mu.Lock()
		rows := f.views[view][partition]
		keys := make([]string, 0, len(rows))
		for k := range rows {
			if after == "" || k > after {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		out := make([]Row, 0, len(keys))
		for _, k := range keys {
			out = append(out, rows[k])
		}
		f.mu.Unlock()
		for _, row := range out {
			if !yield(row, nil) {
				return
			}
		}
	}
}

func (f *fakeStore) GetRow(ctx context.Context, view, partition, rowKey string) (*Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.views[view][partition][rowKey]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (f *fakeStore) rowCount(view string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, rows := range f.views[view] {
		n += len(rows)
	}
	return n
}

func (f *fakeStore) upsertCount(view string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts[view]
}
