package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	"activity-events/domain"
)

// eventRow is the printable form of a view record.
type eventRow struct {
	View          string `json:"view" yaml:"view"`
	CorrelationID string `json:"correlationId" yaml:"correlationId"`
	Reference     string `json:"reference" yaml:"reference"`
	Year          int    `json:"year,omitempty" yaml:"year,omitempty"`
	EventDateTime string `json:"eventDateTime" yaml:"eventDateTime"`
	ID            string `json:"id" yaml:"id"`
	Type          string `json:"type" yaml:"type"`
	Source        string `json:"source" yaml:"source"`
	UserID        string `json:"userId" yaml:"userId"`
	Payload       string `json:"payload,omitempty" yaml:"payload,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func correlationRow(rec domain.EventByCorrelationID) eventRow {
	return eventRow{
		View:          domain.ViewByCorrelationID,
		CorrelationID: rec.PrimaryKey.CorrelationID,
		Reference:     rec.Reference,
		EventDateTime: formatTime(rec.PrimaryKey.EventDateTime),
		ID:            rec.EventID,
		Type:          rec.Type,
		Source:        rec.Source,
		UserID:        rec.UserID,
		Payload:       rec.Payload,
	}
}

func referenceRow(rec domain.EventByReference) eventRow {
	return eventRow{
		View:          domain.ViewByReference,
		CorrelationID: rec.CorrelationID,
		Reference:     rec.PrimaryKey.Reference,
		Year:          rec.PrimaryKey.Year,
		EventDateTime: formatTime(rec.PrimaryKey.EventDateTime),
		ID:            rec.EventID,
		Type:          rec.Type,
		Source:        rec.Source,
		UserID:        rec.UserID,
		Payload:       rec.Payload,
	}
}

// writeRows renders rows in the requested format.
func writeRows(w io.Writer, format string, rows []eventRow) error {
	if rows == nil {
		rows = []eventRow{}
	}
	switch format {
	case "json":
		out, err := sonic.ConfigStd.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", out)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		for _, r := range rows {
			fields := []string{r.EventDateTime, r.CorrelationID, r.Reference, r.Type, r.ID, r.Payload}
			for i, f := range fields {
				if f == "" {
					fields[i] = "-"
				}
			}
			if _, err := fmt.Fprintln(w, strings.Join(fields, "\t")); err != nil {
				return err
			}
		}
		return nil
	}
}
