package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"activity-events/domain"
)

const (
	EdmInt64    = "Edm.Int64"
	EdmDateTime = "Edm.DateTime"
	EdmDouble   = "Edm.Double"
	EdmGUID     = "Edm.Guid"
	EdmBinary   = "Edm.Binary"

	odataTypeSuffix = "@odata.type"
)

// encodeEntity renders a row as a table entity payload, annotating the columns
// whose JSON form does not carry their type.
func encodeEntity(row domain.Row) ([]byte, error) {
	ent := make(map[string]any, len(row.Columns)*2+2)
	ent["PartitionKey"] = row.PartitionKey
	ent["RowKey"] = row.RowKey
	for col, v := range row.Columns {
		if isReservedColumn(col) {
			return nil, fmt.Errorf("%w: column %s is reserved", domain.ErrSchemaMismatch, col)
		}
		switch val := v.(type) {
		case string, bool, int32:
			ent[col] = val
		case int64:
			ent[col] = strconv.FormatInt(val, 10)
			ent[col+odataTypeSuffix] = EdmInt64
		case float64:
			ent[col] = val
			ent[col+odataTypeSuffix] = EdmDouble
		case time.Time:
			ent[col] = val.UTC().Format(time.RFC3339Nano)
			ent[col+odataTypeSuffix] = EdmDateTime
		default:
			return nil, fmt.Errorf("%w: column %s has unsupported type %T", domain.ErrSchemaMismatch, col, v)
		}
	}
	return sonic.ConfigStd.Marshal(ent)
}

// decodeEntity parses a table entity payload into a row.
func decodeEntity(data []byte) (domain.Row, error) {
	var raw map[string]json.RawMessage
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil {
		return domain.Row{}, fmt.Errorf("%w: %v", domain.ErrSchemaMismatch, err)
	}
	row := domain.Row{Columns: map[string]any{}}
	if err := unmarshalString(raw["PartitionKey"], &row.PartitionKey); err != nil {
		return domain.Row{}, fmt.Errorf("%w: PartitionKey: %v", domain.ErrSchemaMismatch, err)
	}
	if err := unmarshalString(raw["RowKey"], &row.RowKey); err != nil {
		return domain.Row{}, fmt.Errorf("%w: RowKey: %v", domain.ErrSchemaMismatch, err)
	}
	for col, val := range raw {
		if isReservedColumn(col) || strings.HasSuffix(col, odataTypeSuffix) {
			continue
		}
		var edmType string
		if ann, ok := raw[col+odataTypeSuffix]; ok {
			if err := unmarshalString(ann, &edmType); err != nil {
				return domain.Row{}, fmt.Errorf("%w: %s annotation: %v", domain.ErrSchemaMismatch, col, err)
			}
		}
		v, err := decodeValue(edmType, val)
		if err != nil {
			return domain.Row{}, fmt.Errorf("%w: column %s: %v", domain.ErrSchemaMismatch, col, err)
		}
		if v != nil {
			row.Columns[col] = v
		}
	}
	return row, nil
}

func decodeValue(edmType string, val json.RawMessage) (any, error) {
	val = bytes.TrimSpace(val)
	if len(val) == 0 || bytes.Equal(val, []byte("null")) {
		return nil, nil
	}
	switch edmType {
	case EdmInt64:
		var s string
		if err := unmarshalString(val, &s); err != nil {
			return nil, err
		}
		return strconv.ParseInt(s, 10, 64)
	case EdmDateTime:
		var s string
		if err := unmarshalString(val, &s); err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case EdmDouble:
		if val[0] == '"' {
			var s string
			if err := unmarshalString(val, &s); err != nil {
				return nil, err
			}
			return strconv.ParseFloat(s, 64)
		}
		return strconv.ParseFloat(string(val), 64)
	case EdmGUID, EdmBinary, "":
	default:
		return nil, fmt.Errorf("unsupported type %s", edmType)
	}

	switch val[0] {
	case '"':
		var s string
		err := unmarshalString(val, &s)
		return s, err
	case 't', 'f':
		var b bool
		err := sonic.ConfigStd.Unmarshal(val, &b)
		return b, err
	default:
		if n, err := strconv.ParseInt(string(val), 10, 32); err == nil {
			return int32(n), nil
		}
		return strconv.ParseFloat(string(val), 64)
	}
}

func unmarshalString(raw json.RawMessage, dst *string) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing")
	}
	return sonic.ConfigStd.Unmarshal(raw, dst)
}

func isReservedColumn(col string) bool {
	switch col {
	case "PartitionKey", "RowKey", "Timestamp":
		return true
	}
	return strings.HasPrefix(col, "odata.")
}
