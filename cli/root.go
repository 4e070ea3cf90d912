package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"activity-events/config"
	"activity-events/domain"
	"activity-events/storage"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"
	Timeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for eventctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "eventctl",
		Short: "Administer the activity event views",
		Long: `Administer the activity event views.

Storage is configured from the same environment variables as the services
(VIEW_STORE_BACKEND, STORAGE_CONNECTION_STRING, REDIS_CONNECTION_STRING, ...).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Verbose {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "deadline for the whole command")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewWaitCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewRedriveCommand(opts))

	return cmd
}

// session is the configuration and store a command works against.
type session struct {
	cfg   config.Ingester
	loc   *time.Location
	store storage.Store
}

func loadConfig() (config.Ingester, error) {
	var cfg config.Ingester
	if err := config.ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &session{cfg: cfg, loc: loc, store: store}, nil
}

func (s *session) Close() error { return s.store.Close() }

func (s *session) ingestor() *domain.Ingestor {
	return domain.NewIngestor(domain.NewProjector(s.loc), s.store, domain.RetryPolicy{MaxElapsed: s.cfg.WriteMaxElapsed})
}

func (opts *RootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if opts.Timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), opts.Timeout)
}
