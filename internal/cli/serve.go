package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the intake endpoints and run the batch scheduler",
		Long: `Start the HTTP server (POST /delta, POST /delta/immediate,
POST /mandatarissen/reconcile, GET /health, GET /metrics) and wake the
batch scheduler on the configured SCHEDULE until interrupted.

Example:
  mandaatsync serve --db ./mandaatsync.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	svc, err := openService(cmd, opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s, scheduler on %q. Press Ctrl-C to stop.\n",
		svc.Config.Addr(), svc.Config.Schedule)
	if err := svc.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "service error", err)
	}
	return nil
}
