package domain

import (
	"fmt"
	"time"
)

// Row is one physical row of a view: a partition, a clustering value and typed columns.
// Column values are string, int32, int64, bool, float64 or time.Time.
type Row struct {
	PartitionKey string
	RowKey       string
	Columns      map[string]any
}

// String returns a required string column.
func (r Row) String(col string) (string, error) {
	if _, ok := r.Columns[col]; !ok {
		return "", fmt.Errorf("%w: column %s missing", ErrSchemaMismatch, col)
	}
	return r.OptionalString(col)
}

// OptionalString returns a string column, or "" when the row does not carry it.
func (r Row) OptionalString(col string) (string, error) {
	v, ok := r.Columns[col]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", columnTypeError(col, "string", v)
	}
	return s, nil
}

// Int returns an integer column. Both int32 and int64 columns are accepted.
func (r Row) Int(col string) (int64, error) {
	v, ok := r.Columns[col]
	if !ok {
		return 0, fmt.Errorf("%w: column %s missing", ErrSchemaMismatch, col)
	}
	switch n := v.(type) {
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, columnTypeError(col, "integer", v)
	}
}

// Time returns a timestamp column.
func (r Row) Time(col string) (time.Time, error) {
	v, ok := r.Columns[col]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: column %s missing", ErrSchemaMismatch, col)
	}
	t, ok := v.(time.Time)
	if !ok {
		return time.Time{}, columnTypeError(col, "timestamp", v)
	}
	return t, nil
}

func columnTypeError(col, want string, got any) error {
	return fmt.Errorf("%w: column %s is %T, want %s", ErrSchemaMismatch, col, got, want)
}
