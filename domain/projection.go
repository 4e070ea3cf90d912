package domain

import (
	"fmt"
	"time"
)

// CorrelationKey is the primary key of the events_by_correlation_id view:
// partition CorrelationID, clustering EventDateTime ascending.
type CorrelationKey struct {
	CorrelationID string
	EventDateTime time.Time
}

// EventByCorrelationID is the view record serving "correlation id + time range" reads.
type EventByCorrelationID struct {
	PrimaryKey CorrelationKey
	Reference  string
	Attributes
}

// ReferenceKey is the primary key of the events_by_reference view:
// partition (Reference, Year), clustering EventDateTime ascending.
type ReferenceKey struct {
	Reference     string
	Year          int
	EventDateTime time.Time
}

// EventByReference is the view record serving "reference + year" reads.
type EventByReference struct {
	PrimaryKey    ReferenceKey
	CorrelationID string
	Attributes
}

// Projection holds one record per view derived from a single event.
type Projection struct {
	ByCorrelationID EventByCorrelationID
	ByReference     EventByReference
}

// Projector derives view records from events. It holds no mutable state and is
// safe for concurrent use.
type Projector struct {
	loc *time.Location
}

// NewProjector returns a Projector deriving calendar years in loc.
// A nil loc means the system zone.
func NewProjector(loc *time.Location) Projector {
	if loc == nil {
		loc = time.Local
	}
	return Projector{loc: loc}
}

// Location is the zone used to derive the by-reference year.
func (p Projector) Location() *time.Location {
	if p.loc == nil {
		return time.Local
	}
	return p.loc
}

// Year returns the calendar year of t in the projector's zone.
func (p Projector) Year(t time.Time) int {
	return t.In(p.Location()).Year()
}

// Project derives both view records. Either both are returned or an error
// wrapping ErrInvalidEvent.
func (p Projector) Project(ev *Event) (Projection, error) {
	if err := p.validate(ev); err != nil {
		return Projection{}, err
	}
	return Projection{
		ByCorrelationID: p.correlationView(ev),
		ByReference:     p.referenceView(ev),
	}, nil
}

// ProjectCorrelationView derives only the events_by_correlation_id record.
func (p Projector) ProjectCorrelationView(ev *Event) (EventByCorrelationID, error) {
	if err := p.validate(ev); err != nil {
		return EventByCorrelationID{}, err
	}
	return p.correlationView(ev), nil
}

// ProjectReferenceView derives only the events_by_reference record.
func (p Projector) ProjectReferenceView(ev *Event) (EventByReference, error) {
	if err := p.validate(ev); err != nil {
		return EventByReference{}, err
	}
	return p.referenceView(ev), nil
}

func (p Projector) validate(ev *Event) error {
	if ev == nil {
		return invalidEvent("event", "is nil")
	}
	if err := validateKeyPart("reference", ev.Reference); err != nil {
		return err
	}
	if err := validateKeyPart("correlationId", ev.CorrelationID); err != nil {
		return err
	}
	if ev.EventDateTime.IsZero() {
		return invalidEvent("eventDateTime", "is not set")
	}
	if y := ev.EventDateTime.UTC().Year(); !yearInRange(y) {
		return invalidEvent("eventDateTime", fmt.Sprintf("year %d out of range", y))
	}
	if y := p.Year(ev.EventDateTime); !yearInRange(y) {
		return invalidEvent("eventDateTime", fmt.Sprintf("year %d out of range in %s", y, p.Location()))
	}
	return nil
}

func (p Projector) correlationView(ev *Event) EventByCorrelationID {
	return EventByCorrelationID{
		PrimaryKey: CorrelationKey{
			CorrelationID: ev.CorrelationID,
			EventDateTime: ev.EventDateTime,
		},
		Reference:  ev.Reference,
		Attributes: ev.attributes(),
	}
}

func (p Projector) referenceView(ev *Event) EventByReference {
	return EventByReference{
		PrimaryKey: ReferenceKey{
			Reference:     ev.Reference,
			Year:          p.Year(ev.EventDateTime),
			EventDateTime: ev.EventDateTime,
		},
		CorrelationID: ev.CorrelationID,
		Attributes:    ev.attributes(),
	}
}
