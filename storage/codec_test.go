package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"activity-events/domain"
)

func TestEntityRoundTrip(t *testing.T) {
	at := time.Date(2016, 6, 15, 10, 30, 0, 123456789, time.UTC)
	row := domain.Row{
		PartitionKey: "ORD-1:2016",
		RowKey:       domain.ClusteringKey(at),
		Columns: map[string]any{
			"Reference":     "ORD-1",
			"Year":          int32(2016),
			"Sequence":      int64(1) << 40,
			"Score":         1.5,
			"Active":        true,
			"EventDateTime": at,
		},
	}
	payload, err := encodeEntity(row)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(payload), `"EventDateTime@odata.type":"Edm.DateTime"`) {
		t.Fatalf("expected datetime annotation in %s", payload)
	}
	if !strings.Contains(string(payload), `"Sequence":"1099511627776"`) {
		t.Fatalf("expected int64 as string in %s", payload)
	}

	got, err := decodeEntity(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PartitionKey != row.PartitionKey || got.RowKey != row.RowKey {
		t.Fatalf("keys changed: %+v", got)
	}
	if got.Columns["Year"] != int32(2016) {
		t.Fatalf("expected int32 year, got %#v", got.Columns["Year"])
	}
	if got.Columns["Sequence"] != int64(1)<<40 {
		t.Fatalf("expected int64 sequence, got %#v", got.Columns["Sequence"])
	}
	if got.Columns["Score"] != 1.5 || got.Columns["Active"] != true || got.Columns["Reference"] != "ORD-1" {
		t.Fatalf("unexpected columns %#v", got.Columns)
	}
	ts, ok := got.Columns["EventDateTime"].(time.Time)
	if !ok || !ts.Equal(at) {
		t.Fatalf("expected %v, got %#v", at, got.Columns["EventDateTime"])
	}
}

func TestDecodeEntitySkipsServiceProperties(t *testing.T) {
	payload := []byte(`{
		"odata.metadata": "https://acct.table.core.windows.net/$metadata#EventsByReference/@Element",
		"odata.etag": "W/\"datetime'2016-06-15T10%3A30%3A00.1Z'\"",
		"PartitionKey": "ORD-1:2016",
		"RowKey": "2016-06-15T10:30:00.123456789Z",
		"Timestamp": "2016-06-15T10:30:01.0000000Z",
		"Timestamp@odata.type": "Edm.DateTime",
		"Type": "page_view",
		"Payload": null
	}`)
	row, err := decodeEntity(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(row.Columns) != 1 || row.Columns["Type"] != "page_view" {
		t.Fatalf("unexpected columns %#v", row.Columns)
	}
}

func TestEncodeEntityRejectsUnsupportedColumns(t *testing.T) {
	cases := []domain.Row{
		{PartitionKey: "p", RowKey: "r", Columns: map[string]any{"Timestamp": "x"}},
		{PartitionKey: "p", RowKey: "r", Columns: map[string]any{"Tags": []string{"a"}}},
	}
	for _, row := range cases {
		if _, err := encodeEntity(row); !errors.Is(err, domain.ErrSchemaMismatch) {
			t.Fatalf("expected schema mismatch for %#v, got %v", row.Columns, err)
		}
	}
}

func TestDecodeEntityErrors(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"PartitionKey":`,
		"missing keys": `{"Type":"x"}`,
		"bad int64":    `{"PartitionKey":"p","RowKey":"r","N":"abc","N@odata.type":"Edm.Int64"}`,
		"bad datetime": `{"PartitionKey":"p","RowKey":"r","T":"yesterday","T@odata.type":"Edm.DateTime"}`,
		"unknown edm":  `{"PartitionKey":"p","RowKey":"r","X":"1","X@odata.type":"Edm.Decimal"}`,
	}
	for name, payload := range cases {
		if _, err := decodeEntity([]byte(payload)); !errors.Is(err, domain.ErrSchemaMismatch) {
			t.Fatalf("%s: expected schema mismatch, got %v", name, err)
		}
	}
}
