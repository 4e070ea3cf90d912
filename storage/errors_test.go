package storage

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"activity-events/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"throttled", &azcore.ResponseError{StatusCode: http.StatusTooManyRequests}, domain.ErrStoreUnavailable},
		{"server busy", &azcore.ResponseError{StatusCode: http.StatusServiceUnavailable, ErrorCode: "ServerBusy"}, domain.ErrStoreUnavailable},
		{"timeout", &azcore.ResponseError{StatusCode: http.StatusRequestTimeout}, domain.ErrStoreUnavailable},
		{"transport", errors.New("dial tcp: connection refused"), domain.ErrStoreUnavailable},
		{"deadline", context.DeadlineExceeded, domain.ErrStoreUnavailable},
		{"missing table", &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: string(aztables.TableNotFound)}, domain.ErrSchemaMismatch},
		{"value too large", &azcore.ResponseError{StatusCode: http.StatusBadRequest, ErrorCode: "PropertyValueTooLarge"}, domain.ErrInvalidEvent},
		{"body too large", &azcore.ResponseError{StatusCode: http.StatusRequestEntityTooLarge, ErrorCode: "RequestBodyTooLarge"}, domain.ErrInvalidEvent},
		{"entity too large", &azcore.ResponseError{StatusCode: http.StatusBadRequest, ErrorCode: "EntityTooLarge"}, domain.ErrInvalidEvent},
		{"invalid property type", &azcore.ResponseError{StatusCode: http.StatusBadRequest, ErrorCode: "InvalidInput"}, domain.ErrSchemaMismatch},
		{"forbidden", &azcore.ResponseError{StatusCode: http.StatusForbidden}, domain.ErrSchemaMismatch},
	}
	for _, tc := range cases {
		err := classify("upsert", domain.ViewByReference, tc.err)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v", tc.name, tc.want)
		}
		if tc.want == domain.ErrInvalidEvent && errors.Is(err, domain.ErrSchemaMismatch) {
			t.Fatalf("%s: a refused record must not halt ingestion", tc.name)
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("%s: cause not preserved", tc.name)
		}
		var storeErr *domain.StoreError
		if !errors.As(err, &storeErr) || storeErr.Op != "upsert" || storeErr.View != domain.ViewByReference {
			t.Fatalf("%s: expected store error with op and view", tc.name)
		}
	}
}

func TestClassifyPassesThrough(t *testing.T) {
	if classify("get", "v", nil) != nil {
		t.Fatal("expected nil")
	}
	if err := classify("get", "v", context.Canceled); err != context.Canceled {
		t.Fatalf("expected cancellation untouched, got %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "ResourceNotFound"}) {
		t.Fatal("expected missing entity to be not found")
	}
	if isNotFound(&azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: string(aztables.TableNotFound)}) {
		t.Fatal("missing table is not a missing entity")
	}
	if isNotFound(errors.New("boom")) {
		t.Fatal("plain error is not not-found")
	}
}
