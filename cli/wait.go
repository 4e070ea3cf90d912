package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"activity-events/storage"
)

// WaitOptions holds flags for the wait command.
type WaitOptions struct {
	*RootOptions
	Interval time.Duration
	Stable   int
}

// NewWaitCommand creates the wait command.
func NewWaitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WaitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until the view store answers",
		Long: `Block until the view store answers a number of consecutive probes.

Use --timeout to bound the wait.

Example:
  eventctl wait --timeout 2m --stable 3`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWait(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "delay between probes")
	cmd.Flags().IntVar(&opts.Stable, "stable", 3, "consecutive successful probes required")

	return cmd
}

func runWait(opts *WaitOptions, cmd *cobra.Command) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := opts.context(cmd)
	defer cancel()

	start := time.Now()
	if err := storage.WaitReady(ctx, s.store.Ping, opts.Interval, opts.Stable); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "store ready after %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
