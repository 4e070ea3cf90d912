package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"activity-events/domain"
)

// RedriveOptions holds flags for the redrive command.
type RedriveOptions struct {
	*RootOptions
	Views []string
}

// NewRedriveCommand creates the redrive command.
func NewRedriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RedriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "redrive <file>...",
		Short: "Rewrite selected views from event files",
		Long: `Rewrite selected views from event files.

Repairs a view left behind by a partial ingest. Rows are rewritten with the
same keys, so redriving an event that is already present changes nothing.

Example:
  eventctl redrive --view events_by_reference failed.json`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedrive(opts, cmd, args)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Views, "view", nil, fmt.Sprintf("view to rewrite, repeatable (%v); all when omitted", domain.Views))

	return cmd
}

func runRedrive(opts *RedriveOptions, cmd *cobra.Command, args []string) error {
	for _, v := range opts.Views {
		if !slices.Contains(domain.Views, v) {
			return fmt.Errorf("unknown view %q: must be one of %v", v, domain.Views)
		}
	}
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
	ingestor := s.ingestor()
	for i, ev := range events {
		if _, err := ingestor.Redrive(ctx, ev, opts.Views...); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	views := opts.Views
	if len(views) == 0 {
		views = domain.Views
	}
	fmt.Fprintf(cmd.OutOrStdout(), "redrove %d events into %v\n", len(events), views)
	return nil
}
