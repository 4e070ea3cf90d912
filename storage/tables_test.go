package storage

import (
	"errors"
	"testing"

	"activity-events/domain"
)

func TestPartitionFilter(t *testing.T) {
	cases := []struct {
		partition, after, want string
	}{
		{"ORD-1:2016", "", "PartitionKey eq 'ORD-1:2016'"},
		{"c1", "2016-01-01T00:00:00.000000000Z", "PartitionKey eq 'c1' and RowKey gt '2016-01-01T00:00:00.000000000Z'"},
		{"O'Brien:2016", "", "PartitionKey eq 'O''Brien:2016'"},
	}
	for _, tc := range cases {
		if got := partitionFilter(tc.partition, tc.after); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}

func TestNewTableStoreRequiresNames(t *testing.T) {
	conn := "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;TableEndpoint=http://127.0.0.1:10002/devstoreaccount1;"
	if _, err := NewTableStore(conn, map[string]string{domain.ViewByReference: ""}); err == nil {
		t.Fatal("expected error for empty table name")
	}
	s, err := NewTableStore(conn, map[string]string{domain.ViewByReference: "EventsByReference"})
	if err != nil {
		t.Fatalf("new table store: %v", err)
	}
	if _, err := s.client("upsert", domain.ViewByCorrelationID); !errors.Is(err, domain.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch for unconfigured view, got %v", err)
	}
}
