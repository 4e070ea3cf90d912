package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidEvent rejects an event that cannot be projected. Nothing is written.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrStoreUnavailable marks a transient connectivity or timeout fault on a single view operation.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrSchemaMismatch marks a record shape the store does not accept or a row that cannot be decoded.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidKey rejects a lookup key that cannot address a partition.
	ErrInvalidKey = errors.New("invalid key")
	// ErrDeserialization is returned by DecodeEvent for malformed inbound messages.
	ErrDeserialization = errors.New("deserialization failed")
)

func invalidEvent(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidEvent, field, reason)
}

// StoreError describes a failed store operation against one view.
// Kind is one of ErrStoreUnavailable, ErrSchemaMismatch or ErrInvalidEvent, the last
// when the store refuses this one record.
type StoreError struct {
	Op   string
	View string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.View, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.View, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Unavailable wraps err as a transient store fault.
func Unavailable(op, view string, err error) error {
	return &StoreError{Op: op, View: view, Kind: ErrStoreUnavailable, Err: err}
}

// SchemaMismatch wraps err as a fatal record shape fault.
func SchemaMismatch(op, view string, err error) error {
	return &StoreError{Op: op, View: view, Kind: ErrSchemaMismatch, Err: err}
}

// Rejected wraps err as a refusal of one record, such as a value over the store's size limits.
// The event is invalid for this store and retrying cannot succeed.
func Rejected(op, view string, err error) error {
	return &StoreError{Op: op, View: view, Kind: ErrInvalidEvent, Err: err}
}

// ViewWriteError reports the views whose write failed while ingesting one event.
// Views that are not listed were written successfully.
type ViewWriteError struct {
	Failed map[string]error
}

func (e *ViewWriteError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, view := range e.Views() {
		parts = append(parts, fmt.Sprintf("%s: %v", view, e.Failed[view]))
	}
	return "view write failed: " + strings.Join(parts, "; ")
}

func (e *ViewWriteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, view := range e.Views() {
		errs = append(errs, e.Failed[view])
	}
	return errs
}

// Views lists the failed views in a stable order.
func (e *ViewWriteError) Views() []string {
	views := make([]string, 0, len(e.Failed))
	for view := range e.Failed {
		views = append(views, view)
	}
	sort.Strings(views)
	return views
}
