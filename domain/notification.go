package domain

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Notification announces that both views hold an event.
type Notification struct {
	ID            string    `json:"id,omitempty"`
	CorrelationID string    `json:"correlationId"`
	Reference     string    `json:"reference"`
	Year          int       `json:"year"`
	EventDateTime time.Time `json:"eventDateTime"`
	Type          string    `json:"type,omitempty"`
}

// NewNotification summarises a projected event. Keys come from the projection
// so they match what readers will find in the views.
func NewNotification(p Projection) Notification {
	return Notification{
		ID:            p.ByCorrelationID.EventID,
		CorrelationID: p.ByCorrelationID.PrimaryKey.CorrelationID,
		Reference:     p.ByReference.PrimaryKey.Reference,
		Year:          p.ByReference.PrimaryKey.Year,
		EventDateTime: p.ByCorrelationID.PrimaryKey.EventDateTime,
		Type:          p.ByCorrelationID.Type,
	}
}

// Matches reports whether n passes the filter. Empty filter fields match anything.
func (n Notification) Matches(correlationID, reference string) bool {
	if correlationID != "" && n.CorrelationID != correlationID {
		return false
	}
	if reference != "" && n.Reference != reference {
		return false
	}
	return true
}

// Encode renders n as JSON.
func (n Notification) Encode() ([]byte, error) {
	return sonic.ConfigStd.Marshal(n)
}

// DecodeNotification parses a published notification.
func DecodeNotification(raw []byte) (Notification, error) {
	var n Notification
	if err := sonic.ConfigStd.Unmarshal(raw, &n); err != nil {
		return n, fmt.Errorf("%w: notification: %v", ErrDeserialization, err)
	}
	if n.CorrelationID == "" || n.Reference == "" {
		return n, fmt.Errorf("%w: notification without keys", ErrDeserialization)
	}
	return n, nil
}
