package cli

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roach88/mandaatsync/internal/config"
	"github.com/roach88/mandaatsync/internal/service"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string   // "json" | "text"
	EnvFiles []string // .env files loaded before the environment
	Database string   // overrides DB_PATH
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "mandaatsync",
		Short: "Reconcile ratified mandate decisions into organization graphs",
		Long: `mandaatsync turns harvested decisions that ratify mandate appointments
into authoritative mandate holder records in each organization's graph.

Configuration is read from the environment (SCHEDULE, DECISION_BUFFER_WINDOW,
DECISION_BATCH_SIZE, STAGING_GRAPH, QUEUE_GRAPH, ORGANIZATION_GRAPH_TEMPLATE,
DB_PATH, PORT, LOG_LEVEL, LOG_FORMAT, METRICS_ENABLED), seeded from .env and
.env.local when present.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", config.DefaultEnvFiles, "env files to load")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database path (overrides DB_PATH)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTickCommand(opts))
	cmd.AddCommand(NewEnqueueCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// loadConfig reads configuration and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Configuration, error) {
	cfg, err := config.Load(opts.EnvFiles...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	return cfg, nil
}

// openService loads configuration and wires the pipeline. Logs go to the
// command's stderr; --verbose forces debug level.
func openService(cmd *cobra.Command, opts *RootOptions) (*service.Service, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(cmd.ErrOrStderr())
	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	svc, err := service.Open(cfg, service.Options{Logger: logrus.NewEntry(logger)})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open service", err)
	}
	return svc, nil
}
