package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"activity-events/domain"
)

// QueryOptions holds flags shared by the query subcommands.
type QueryOptions struct {
	*RootOptions
	After string
	Limit int
}

// NewQueryCommand creates the query command with one subcommand per view.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read events from a view",
	}

	cmd.PersistentFlags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 for all)")

	correlation := &cobra.Command{
		Use:   "correlation <correlation-id>",
		Short: "List events sharing a correlation id in time order",
		Long: `List events sharing a correlation id in time order.

Example:
  eventctl query correlation 3fa85f64-5717-4562-b3fc-2c963f66afa6 --after 2016-01-01T00:00:00Z`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryCorrelation(opts, cmd, args[0])
		},
	}
	correlation.Flags().StringVar(&opts.After, "after", "", "only events strictly after this RFC 3339 instant")

	reference := &cobra.Command{
		Use:          "reference <reference> <year>",
		Short:        "List events of a reference within one calendar year",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[1])
			}
			return runQueryReference(opts, cmd, args[0], year)
		},
	}

	cmd.AddCommand(correlation, reference)
	return cmd
}

func runQueryCorrelation(opts *QueryOptions, cmd *cobra.Command, correlationID string) error {
	var after time.Time
	if opts.After != "" {
		t, err := time.Parse(time.RFC3339Nano, opts.After)
		if err != nil {
			return fmt.Errorf("invalid --after: %w", err)
		}
		after = t
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := opts.context(cmd)
	defer cancel()

	recs, err := domain.NewEventsByCorrelationIDRepository(s.store).
		FindByCorrelationIDAfter(ctx, domain.CanonicalID(correlationID), after, opts.Limit)
	if err != nil {
		return err
	}
	rows := make([]eventRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, correlationRow(rec))
	}
	return writeRows(cmd.OutOrStdout(), opts.Format, rows)
}

func runQueryReference(opts *QueryOptions, cmd *cobra.Command, reference string, year int) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := opts.context(cmd)
	defer cancel()

	recs, err := domain.NewEventsByReferenceRepository(s.store).FindByReferenceAndYear(ctx, reference, year)
	if err != nil {
		return err
	}
	if opts.Limit > 0 && len(recs) > opts.Limit {
		recs = recs[:opts.Limit]
	}
	rows := make([]eventRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, referenceRow(rec))
	}
	return writeRows(cmd.OutOrStdout(), opts.Format, rows)
}
