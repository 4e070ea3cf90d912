package domain

import "fmt"

// View names. They double as the logical table names of the store schema.
const (
	ViewByCorrelationID = "events_by_correlation_id"
	ViewByReference     = "events_by_reference"
)

// Views lists every view an event is projected into.
var Views = []string{ViewByCorrelationID, ViewByReference}

// Column names shared by both views.
const (
	ColCorrelationID = "CorrelationId"
	ColReference     = "Reference"
	ColYear          = "Year"
	ColEventDateTime = "EventDateTime"
	ColEventID       = "EventId"
	ColType          = "Type"
	ColSource        = "Source"
	ColUserID        = "UserId"
	ColPayload       = "Payload"
)

type correlationSchema struct{}

func (correlationSchema) View() string { return ViewByCorrelationID }

func (correlationSchema) Encode(rec EventByCorrelationID) (Row, error) {
	if rec.PrimaryKey.CorrelationID == "" || rec.PrimaryKey.EventDateTime.IsZero() {
		return Row{}, fmt.Errorf("incomplete primary key %+v", rec.PrimaryKey)
	}
	cols := attributeColumns(rec.Attributes)
	cols[ColCorrelationID] = rec.PrimaryKey.CorrelationID
	cols[ColReference] = rec.Reference
	cols[ColEventDateTime] = rec.PrimaryKey.EventDateTime.UTC()
	return Row{
		PartitionKey: rec.PrimaryKey.CorrelationID,
		RowKey:       ClusteringKey(rec.PrimaryKey.EventDateTime),
		Columns:      cols,
	}, nil
}

func (correlationSchema) Decode(row Row) (EventByCorrelationID, error) {
	at, err := ParseClusteringKey(row.RowKey)
	if err != nil {
		return EventByCorrelationID{}, err
	}
	reference, err := row.String(ColReference)
	if err != nil {
		return EventByCorrelationID{}, err
	}
	attrs, err := decodeAttributes(row)
	if err != nil {
		return EventByCorrelationID{}, err
	}
	return EventByCorrelationID{
		PrimaryKey: CorrelationKey{CorrelationID: row.PartitionKey, EventDateTime: at},
		Reference:  reference,
		Attributes: attrs,
	}, nil
}

type referenceSchema struct{}

func (referenceSchema) View() string { return ViewByReference }

func (referenceSchema) Encode(rec EventByReference) (Row, error) {
	if rec.PrimaryKey.Reference == "" || rec.PrimaryKey.EventDateTime.IsZero() {
		return Row{}, fmt.Errorf("incomplete primary key %+v", rec.PrimaryKey)
	}
	if err := validateYear(rec.PrimaryKey.Year); err != nil {
		return Row{}, err
	}
	cols := attributeColumns(rec.Attributes)
	cols[ColReference] = rec.PrimaryKey.Reference
	cols[ColYear] = int32(rec.PrimaryKey.Year)
	cols[ColCorrelationID] = rec.CorrelationID
	cols[ColEventDateTime] = rec.PrimaryKey.EventDateTime.UTC()
	return Row{
		PartitionKey: ReferencePartition(rec.PrimaryKey.Reference, rec.PrimaryKey.Year),
		RowKey:       ClusteringKey(rec.PrimaryKey.EventDateTime),
		Columns:      cols,
	}, nil
}

func (referenceSchema) Decode(row Row) (EventByReference, error) {
	reference, year, err := ParseReferencePartition(row.PartitionKey)
	if err != nil {
		return EventByReference{}, err
	}
	at, err := ParseClusteringKey(row.RowKey)
	if err != nil {
		return EventByReference{}, err
	}
	if col, err := row.Int(ColYear); err != nil {
		return EventByReference{}, err
	} else if int(col) != year {
		return EventByReference{}, fmt.Errorf("%w: column %s is %d, partition says %d", ErrSchemaMismatch, ColYear, col, year)
	}
	correlationID, err := row.String(ColCorrelationID)
	if err != nil {
		return EventByReference{}, err
	}
	attrs, err := decodeAttributes(row)
	if err != nil {
		return EventByReference{}, err
	}
	return EventByReference{
		PrimaryKey:    ReferenceKey{Reference: reference, Year: year, EventDateTime: at},
		CorrelationID: correlationID,
		Attributes:    attrs,
	}, nil
}

func attributeColumns(a Attributes) map[string]any {
	cols := map[string]any{}
	put := func(col, v string) {
		if v != "" {
			cols[col] = v
		}
	}
	put(ColEventID, a.EventID)
	put(ColType, a.Type)
	put(ColSource, a.Source)
	put(ColUserID, a.UserID)
	put(ColPayload, a.Payload)
	return cols
}

func decodeAttributes(row Row) (Attributes, error) {
	var a Attributes
	for _, f := range []struct {
		col string
		dst *string
	}{
		{ColEventID, &a.EventID},
		{ColType, &a.Type},
		{ColSource, &a.Source},
		{ColUserID, &a.UserID},
		{ColPayload, &a.Payload},
	} {
		v, err := row.OptionalString(f.col)
		if err != nil {
			return Attributes{}, err
		}
		*f.dst = v
	}
	return a, nil
}
