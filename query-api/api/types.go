package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bytedance/sonic"

	"activity-events/domain"
)

// CorrelationReader reads the events_by_correlation_id view.
type CorrelationReader interface {
	FindByCorrelationIDAfter(ctx context.Context, correlationID string, after time.Time, limit int) ([]domain.EventByCorrelationID, error)
	Get(ctx context.Context, correlationID string, at time.Time) (*domain.EventByCorrelationID, error)
}

// ReferenceReader reads the events_by_reference view.
type ReferenceReader interface {
	FindByReferenceAndYear(ctx context.Context, reference string, year int) ([]domain.EventByReference, error)
	Get(ctx context.Context, reference string, year int, at time.Time) (*domain.EventByReference, error)
}

// Pinger reports whether the view store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Subscriber hands out live change notifications filtered by key.
type Subscriber interface {
	Subscribe(correlationID, reference string) (<-chan domain.Notification, func())
}

// Views bundles the readers the handlers serve from. Updates is optional.
type Views struct {
	ByCorrelationID CorrelationReader
	ByReference     ReferenceReader
	Store           Pinger
	Updates         Subscriber
}

type eventResponse struct {
	ID            string          `json:"id,omitempty"`
	CorrelationID string          `json:"correlationId"`
	Reference     string          `json:"reference"`
	Year          int             `json:"year,omitempty"`
	EventDateTime time.Time       `json:"eventDateTime"`
	Type          string          `json:"type,omitempty"`
	Source        string          `json:"source,omitempty"`
	UserID        string          `json:"userId,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

type eventsResponse struct {
	Events []eventResponse `json:"events"`
	// Next is the eventDateTime to pass as "after" for the following page.
	Next string `json:"next,omitempty"`
}

func payloadJSON(p string) json.RawMessage {
	if p == "" {
		return nil
	}
	if sonic.ValidString(p) {
		return json.RawMessage(p)
	}
	quoted, err := sonic.ConfigStd.MarshalToString(p)
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}

func fromCorrelationRecord(r domain.EventByCorrelationID) eventResponse {
	return eventResponse{
		ID:            r.EventID,
		CorrelationID: r.PrimaryKey.CorrelationID,
		Reference:     r.Reference,
		EventDateTime: r.PrimaryKey.EventDateTime,
		Type:          r.Type,
		Source:        r.Source,
		UserID:        r.UserID,
		Payload:       payloadJSON(r.Payload),
	}
}

func fromReferenceRecord(r domain.EventByReference) eventResponse {
	return eventResponse{
		ID:            r.EventID,
		CorrelationID: r.CorrelationID,
		Reference:     r.PrimaryKey.Reference,
		Year:          r.PrimaryKey.Year,
		EventDateTime: r.PrimaryKey.EventDateTime,
		Type:          r.Type,
		Source:        r.Source,
		UserID:        r.UserID,
		Payload:       payloadJSON(r.Payload),
	}
}
