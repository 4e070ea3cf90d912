package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// activityMessage is the inbound JSON shape of a user activity event.
type activityMessage struct {
	ID            string          `json:"id"`
	Reference     string          `json:"reference"`
	CorrelationID string          `json:"correlationId"`
	EventDateTime json.RawMessage `json:"eventDateTime"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	UserID        string          `json:"userId"`
	Payload       json.RawMessage `json:"payload"`
}

// localLayouts are accepted for zone-less timestamps, read in the converter's zone.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
}

// DecodeEvent converts a raw inbound message into an Event. Zone-less timestamps
// are interpreted in loc (the system zone when nil). Malformed input wraps
// ErrDeserialization. Missing fields are left empty for the projector to reject.
func DecodeEvent(raw []byte, loc *time.Location) (*Event, error) {
	if loc == nil {
		loc = time.Local
	}
	var msg activityMessage
	if err := sonic.ConfigStd.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialization, err)
	}
	at, err := parseEventTime(msg.EventDateTime, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: eventDateTime: %v", ErrDeserialization, err)
	}
	ev := &Event{
		ID:            msg.ID,
		Reference:     msg.Reference,
		CorrelationID: CanonicalID(msg.CorrelationID),
		EventDateTime: at,
		Type:          msg.Type,
		Source:        msg.Source,
		UserID:        msg.UserID,
	}
	if p := bytes.TrimSpace(msg.Payload); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
		ev.Payload = string(p)
	}
	return ev, nil
}

// EncodeEvent renders ev in the inbound message shape. Timestamps are written as
// RFC 3339 with nanoseconds so DecodeEvent restores the same instant.
func EncodeEvent(ev *Event) ([]byte, error) {
	msg := activityMessage{
		ID:            ev.ID,
		Reference:     ev.Reference,
		CorrelationID: ev.CorrelationID,
		Type:          ev.Type,
		Source:        ev.Source,
		UserID:        ev.UserID,
	}
	if !ev.EventDateTime.IsZero() {
		msg.EventDateTime = json.RawMessage(strconv.Quote(ev.EventDateTime.Format(time.RFC3339Nano)))
	}
	if ev.Payload != "" {
		msg.Payload = json.RawMessage(ev.Payload)
	}
	return sonic.ConfigStd.Marshal(msg)
}

func parseEventTime(raw json.RawMessage, loc *time.Location) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] != '"' {
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("not epoch milliseconds: %s", raw)
		}
		return time.UnixMilli(ms), nil
	}
	var s string
	if err := sonic.ConfigStd.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", s)
}

// CanonicalID returns the lower-case hyphenated form of a UUID and leaves other ids untouched.
func CanonicalID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}
