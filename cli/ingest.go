package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"activity-events/domain"
	"activity-events/storage"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Enqueue    bool
	GenerateID bool
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Project activity events from files into both views",
		Long: `Project activity events from files into both views.

Each file holds one event object or an array of them in the inbound message
shape. Use "-" to read from stdin. With --enqueue the events are sent to the
inbound queue for the ingester instead of being written directly.

Example:
  eventctl ingest testdata/events.json
  cat event.json | eventctl ingest --enqueue -`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, cmd, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Enqueue, "enqueue", false, "send events to the inbound queue")
	cmd.Flags().BoolVar(&opts.GenerateID, "generate-id", false, "assign a random id to events without one")

	return cmd
}

func runIngest(opts *IngestOptions, cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := opts.context(cmd)
	defer cancel()

	events, err := readEvents(cmd.InOrStdin(), args, s)
	if err != nil {
		return err
	}
	if opts.GenerateID {
		for _, ev := range events {
			if ev.ID == "" {
				ev.ID = uuid.NewString()
			}
		}
	}

	if opts.Enqueue {
		q, err := storage.NewQueue(s.cfg.ConnectionString, s.cfg.Queue)
		if err != nil {
			return fmt.Errorf("queue client: %w", err)
		}
		for i, ev := range events {
			raw, err := domain.EncodeEvent(ev)
			if err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
			if err := q.Enqueue(ctx, string(raw)); err != nil {
				return fmt.Errorf("event %d: enqueue: %w", i, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "enqueued %d events to %s\n", len(events), q.Name())
		return nil
	}

	ingestor := s.ingestor()
	rows := make([]eventRow, 0, len(events))
	for i, ev := range events {
		p, err := ingestor.Ingest(ctx, ev)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		log.WithFields(log.Fields{
			"correlationId": p.ByCorrelationID.PrimaryKey.CorrelationID,
			"reference":     p.ByReference.PrimaryKey.Reference,
			"year":          p.ByReference.PrimaryKey.Year,
		}).Debug("event ingested")
		rows = append(rows, referenceRow(p.ByReference))
	}
	return writeRows(cmd.OutOrStdout(), opts.Format, rows)
}

// readEvents decodes every event in the named files, "-" being stdin.
func readEvents(stdin io.Reader, paths []string, s *session) ([]*domain.Event, error) {
	var events []*domain.Event
	for _, path := range paths {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		raws, err := splitEvents(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for i, raw := range raws {
			ev, err := domain.DecodeEvent(raw, s.loc)
			if err != nil {
				return nil, fmt.Errorf("%s: event %d: %w", path, i, err)
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// splitEvents accepts either a single JSON object or an array of objects.
func splitEvents(data []byte) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", domain.ErrDeserialization)
	}
	if data[0] != '[' {
		return []json.RawMessage{data}, nil
	}
	var raws []json.RawMessage
	if err := sonic.ConfigStd.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeserialization, err)
	}
	return raws, nil
}
