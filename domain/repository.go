package domain

import (
	"context"
	"iter"
	"time"
)

// EventsByCorrelationIDRepository reads and writes the events_by_correlation_id view.
type EventsByCorrelationIDRepository struct {
	client *ViewClient[EventByCorrelationID]
}

func NewEventsByCorrelationIDRepository(store RowStore) *EventsByCorrelationIDRepository {
	return &EventsByCorrelationIDRepository{client: NewViewClient[EventByCorrelationID](store, correlationSchema{})}
}

// Save upserts rec at (correlation id, event time).
func (r *EventsByCorrelationIDRepository) Save(ctx context.Context, rec EventByCorrelationID) error {
	return r.client.Upsert(ctx, rec)
}

// FindByCorrelationIDAfter returns the events of correlationID strictly after the
// given time, oldest first, capped at limit. A zero after returns the whole partition
// and a limit <= 0 means no cap. Bounds outside the storable years need no store call:
// nothing lies after year 9999 and everything lies after year 0.
func (r *EventsByCorrelationIDRepository) FindByCorrelationIDAfter(ctx context.Context, correlationID string, after time.Time, limit int) ([]EventByCorrelationID, error) {
	if err := validateQueryKey("correlationId", correlationID); err != nil {
		return nil, err
	}
	bound := ""
	switch y := after.UTC().Year(); {
	case after.IsZero(), y < minYear:
	case y > maxYear:
		return []EventByCorrelationID{}, nil
	default:
		bound = ClusteringKey(after)
	}
	return collect(r.client.QueryRange(ctx, correlationID, bound), limit)
}

// Get returns the event of correlationID at exactly at, or nil.
func (r *EventsByCorrelationIDRepository) Get(ctx context.Context, correlationID string, at time.Time) (*EventByCorrelationID, error) {
	if err := validateQueryKey("correlationId", correlationID); err != nil {
		return nil, err
	}
	if err := validateInstant("eventDateTime", at); err != nil {
		return nil, err
	}
	return r.client.QueryExact(ctx, correlationID, ClusteringKey(at))
}

// EventsByReferenceRepository reads and writes the events_by_reference view.
type EventsByReferenceRepository struct {
	client *ViewClient[EventByReference]
}

func NewEventsByReferenceRepository(store RowStore) *EventsByReferenceRepository {
	return &EventsByReferenceRepository{client: NewViewClient[EventByReference](store, referenceSchema{})}
}

// Save upserts rec at (reference, year, event time).
func (r *EventsByReferenceRepository) Save(ctx context.Context, rec EventByReference) error {
	return r.client.Upsert(ctx, rec)
}

// FindByReferenceAndYear returns every event of the (reference, year) partition, oldest first.
func (r *EventsByReferenceRepository) FindByReferenceAndYear(ctx context.Context, reference string, year int) ([]EventByReference, error) {
	if err := validateReferenceKey(reference, year); err != nil {
		return nil, err
	}
	return collect(r.client.QueryRange(ctx, ReferencePartition(reference, year), ""), 0)
}

// Get returns the event of (reference, year) at exactly at, or nil.
func (r *EventsByReferenceRepository) Get(ctx context.Context, reference string, year int, at time.Time) (*EventByReference, error) {
	if err := validateReferenceKey(reference, year); err != nil {
		return nil, err
	}
	if err := validateInstant("eventDateTime", at); err != nil {
		return nil, err
	}
	return r.client.QueryExact(ctx, ReferencePartition(reference, year), ClusteringKey(at))
}

func validateReferenceKey(reference string, year int) error {
	if err := validateQueryKey("reference", reference); err != nil {
		return err
	}
	return validateYear(year)
}

func collect[R any](seq iter.Seq2[R, error], limit int) ([]R, error) {
	out := []R{}
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
