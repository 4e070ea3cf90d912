package domain

import "time"

// Event is one user activity occurrence as produced by the inbound converter.
// It is treated as immutable once constructed.
type Event struct {
	ID            string
	Reference     string
	CorrelationID string
	EventDateTime time.Time
	Type          string
	Source        string
	UserID        string
	// Payload is the raw JSON of the event payload, empty when the message carried none.
	Payload string
}

// Attributes are the payload fields mirrored into every view.
type Attributes struct {
	EventID string
	Type    string
	Source  string
	UserID  string
	Payload string
}

func (e *Event) attributes() Attributes {
	return Attributes{
		EventID: e.ID,
		Type:    e.Type,
		Source:  e.Source,
		UserID:  e.UserID,
		Payload: e.Payload,
	}
}
