package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"activity-events/storage"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	SkipQueue bool
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the view tables and the inbound queue",
		Long: `Create the view tables and the inbound queue.

Existing tables and queues are left untouched, so init is safe to re-run.
The queue is only created when STORAGE_CONNECTION_STRING is set.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipQueue, "skip-queue", false, "do not create the inbound queue")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := opts.context(cmd)
	defer cancel()

	if err := s.store.EnsureTables(ctx); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "views ready")

	if opts.SkipQueue || s.cfg.ConnectionString == "" || s.cfg.Queue == "" {
		return nil
	}
	q, err := storage.NewQueue(s.cfg.ConnectionString, s.cfg.Queue)
	if err != nil {
		return fmt.Errorf("queue client: %w", err)
	}
	if err := q.Ensure(ctx); err != nil {
		return fmt.Errorf("create queue %s: %w", q.Name(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queue %s ready\n", q.Name())
	return nil
}
