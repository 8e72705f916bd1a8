package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mandaatsync/internal/scheduler"
)

// ItemResult is the outcome of one reconciled reference.
type ItemResult struct {
	Ref     string `json:"ref"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// TickResult is the output of the tick command.
type TickResult struct {
	Items  []ItemResult `json:"items"`
	Failed int          `json:"failed"`
	Left   int          `json:"left"`
}

func (r TickResult) String() string {
	var b strings.Builder
	for _, it := range r.Items {
		if it.Error != "" {
			fmt.Fprintf(&b, "✗ %s: %s\n", it.Ref, it.Error)
		} else {
			fmt.Fprintf(&b, "✓ %s: %s\n", it.Ref, it.Outcome)
		}
	}
	fmt.Fprintf(&b, "%d processed, %d failed, %d left in queue", len(r.Items), r.Failed, r.Left)
	return b.String()
}

// NewTickCommand creates the tick command.
func NewTickCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Process one batch of the durable work queue",
		Long: `Wake the batch scheduler once: load due entries older than the buffer
window, reconcile each one and remove the batch.

Exit codes:
  0 - batch processed (entries may have been skipped)
  1 - one or more entries failed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTick(rootOpts, cmd)
		},
	}
}

func runTick(opts *RootOptions, cmd *cobra.Command) error {
	svc, err := openService(cmd, opts)
	if err != nil {
		return err
	}
	defer svc.Close()
	ctx := commandContext(cmd)

	report, err := svc.Scheduler.Tick(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "tick failed", err)
	}
	left, err := svc.WorkQueue.Len(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read queue", err)
	}

	res := tickResult(report, left)
	if err := newFormatter(cmd, opts).Success(res); err != nil {
		return err
	}
	if res.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d entries failed", res.Failed))
	}
	return nil
}

func tickResult(report scheduler.Report, left int) TickResult {
	res := TickResult{Items: []ItemResult{}, Failed: report.Failed, Left: left}
	for _, it := range report.Items {
		item := ItemResult{Ref: it.Entry.Ref, Outcome: string(it.Outcome)}
		if it.Err != nil {
			item.Outcome = "error"
			item.Error = it.Err.Error()
		}
		res.Items = append(res.Items, item)
	}
	return res
}

// NewEnqueueCommand creates the enqueue command.
func NewEnqueueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <mandataris-iri>...",
		Short: "Add mandate records to the durable work queue",
		Example: `  mandaatsync enqueue http://data.lblod.info/id/mandatarissen/x1`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer svc.Close()

			entries, err := svc.WorkQueue.Enqueue(commandContext(cmd), args)
			if err != nil {
				return WrapExitError(ExitCommandError, "enqueue failed", err)
			}
			f := newFormatter(cmd, rootOpts)
			if f.JSON() {
				return f.Success(map[string]int{"enqueued": len(entries)})
			}
			return f.Success(fmt.Sprintf("%d enqueued", len(entries)))
		},
	}
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <mandataris-iri>...",
		Short: "Reconcile mandate records immediately, bypassing the queue",
		Args:  cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer svc.Close()
			ctx := commandContext(cmd)

			res := TickResult{Items: []ItemResult{}}
			for _, ref := range args {
				r, err := svc.Engine.Reconcile(ctx, ref)
				item := ItemResult{Ref: ref, Outcome: string(r.Outcome)}
				if err != nil {
					item.Outcome = "error"
					item.Error = err.Error()
					res.Failed++
				}
				res.Items = append(res.Items, item)
			}
			if res.Left, err = svc.WorkQueue.Len(ctx); err != nil {
				return WrapExitError(ExitCommandError, "failed to read queue", err)
			}
			if err := newFormatter(cmd, rootOpts).Success(res); err != nil {
				return err
			}
			if res.Failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d records failed", res.Failed))
			}
			return nil
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
