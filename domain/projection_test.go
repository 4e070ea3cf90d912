package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const (
	testReference     = "qtvszw9qbjnswfprsxnfelk2yvdvqt09"
	testCorrelationID = "2c08b8f1-afbb-455a-a1bd-31f15115d424"
)

func testEvent() *Event {
	return &Event{
		ID:            "5d1c0b9e-36b5-4a8f-9d5c-8a3c2a0e7f10",
		Reference:     testReference,
		CorrelationID: testCorrelationID,
		EventDateTime: time.Date(2016, 6, 15, 10, 30, 0, 123456789, time.UTC),
		Type:          "page-view",
		Source:        "web",
		UserID:        "user-1",
		Payload:       `{"page":"/checkout"}`,
	}
}

func TestProjectBothViews(t *testing.T) {
	ev := testEvent()
	p, err := NewProjector(time.UTC).Project(ev)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	c := p.ByCorrelationID
	if c.PrimaryKey.CorrelationID != ev.CorrelationID || !c.PrimaryKey.EventDateTime.Equal(ev.EventDateTime) {
		t.Fatalf("unexpected correlation key %+v", c.PrimaryKey)
	}
	r := p.ByReference
	if r.PrimaryKey.Reference != ev.Reference || r.PrimaryKey.Year != 2016 || !r.PrimaryKey.EventDateTime.Equal(ev.EventDateTime) {
		t.Fatalf("unexpected reference key %+v", r.PrimaryKey)
	}
	if c.Reference != r.PrimaryKey.Reference {
		t.Fatalf("views disagree on reference: %q vs %q", c.Reference, r.PrimaryKey.Reference)
	}
	if r.CorrelationID != c.PrimaryKey.CorrelationID {
		t.Fatalf("views disagree on correlation id: %q vs %q", r.CorrelationID, c.PrimaryKey.CorrelationID)
	}
	if c.Attributes != r.Attributes {
		t.Fatalf("views disagree on attributes: %+v vs %+v", c.Attributes, r.Attributes)
	}
	if c.Payload != ev.Payload || c.EventID != ev.ID || c.Type != ev.Type || c.Source != ev.Source || c.UserID != ev.UserID {
		t.Fatalf("attributes not copied verbatim: %+v", c.Attributes)
	}
}

func TestProjectYearUsesProjectorZone(t *testing.T) {
	ev := testEvent()
	ev.EventDateTime = time.Date(2016, 12, 31, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		loc  *time.Location
		want int
	}{
		{"utc", time.UTC, 2016},
		{"ahead", time.FixedZone("UTC+9", 9*3600), 2017},
		{"behind", time.FixedZone("UTC-5", -5*3600), 2016},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj := NewProjector(tt.loc)
			p, err := proj.Project(ev)
			if err != nil {
				t.Fatalf("project: %v", err)
			}
			if p.ByReference.PrimaryKey.Year != tt.want {
				t.Fatalf("year = %d, want %d", p.ByReference.PrimaryKey.Year, tt.want)
			}
			if p.ByReference.PrimaryKey.Year != proj.Year(ev.EventDateTime) {
				t.Fatalf("year disagrees with calendar year of event time")
			}
		})
	}
}

func TestNewProjectorDefaultsToSystemZone(t *testing.T) {
	if NewProjector(nil).Location() != time.Local {
		t.Fatalf("expected time.Local")
	}
	var zero Projector
	if zero.Location() != time.Local {
		t.Fatalf("expected zero projector to use time.Local")
	}
}

func TestProjectRejectsInvalidEvents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event) *Event
		field  string
	}{
		{"nil", func(*Event) *Event { return nil }, "event"},
		{"empty reference", func(e *Event) *Event { e.Reference = ""; return e }, "reference"},
		{"blank reference", func(e *Event) *Event { e.Reference = "  "; return e }, "reference"},
		{"empty correlation id", func(e *Event) *Event { e.CorrelationID = ""; return e }, "correlationId"},
		{"slash in reference", func(e *Event) *Event { e.Reference = "a/b"; return e }, "reference"},
		{"hash in correlation id", func(e *Event) *Event { e.CorrelationID = "a#b"; return e }, "correlationId"},
		{"control character", func(e *Event) *Event { e.Reference = "a\tb"; return e }, "reference"},
		{"zero time", func(e *Event) *Event { e.EventDateTime = time.Time{}; return e }, "eventDateTime"},
		{"year out of range", func(e *Event) *Event { e.EventDateTime = time.Date(10000, 1, 2, 0, 0, 0, 0, time.UTC); return e }, "eventDateTime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProjector(time.UTC).Project(tt.mutate(testEvent()))
			if !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("expected ErrInvalidEvent, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("expected error to name %s, got %v", tt.field, err)
			}
			if p != (Projection{}) {
				t.Fatalf("expected no partial projection, got %+v", p)
			}
		})
	}
}

func TestProjectDoesNotMutateEvent(t *testing.T) {
	ev := testEvent()
	before := *ev
	if _, err := NewProjector(time.FixedZone("X", 3600)).Project(ev); err != nil {
		t.Fatalf("project: %v", err)
	}
	if *ev != before {
		t.Fatalf("event mutated: %+v", *ev)
	}
}

func TestProjectSingleViews(t *testing.T) {
	proj := NewProjector(time.UTC)
	ev := testEvent()
	full, err := proj.Project(ev)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	c, err := proj.ProjectCorrelationView(ev)
	if err != nil || c != full.ByCorrelationID {
		t.Fatalf("correlation view = %+v, %v", c, err)
	}
	r, err := proj.ProjectReferenceView(ev)
	if err != nil || r != full.ByReference {
		t.Fatalf("reference view = %+v, %v", r, err)
	}
	ev.Reference = ""
	if _, err := proj.ProjectCorrelationView(ev); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if _, err := proj.ProjectReferenceView(ev); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}
