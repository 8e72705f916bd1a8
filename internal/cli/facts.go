package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mandaatsync/internal/fixture"
	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/store"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <fixture.yaml>...",
		Short: "Insert the facts of fixture files into the store",
		Long: `Validate each fixture against the fixture schema and insert its facts.
All files are validated before anything is written; each file is inserted in
one transaction.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args, cmd)
		},
	}
}

func runLoad(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	batches := make([][]ir.Quad, 0, len(paths))
	for _, p := range paths {
		doc, err := fixture.Load(p)
		if err != nil {
			return WrapExitError(ExitFailure, "invalid fixture", err)
		}
		quads, err := doc.Quads()
		if err != nil {
			return WrapExitError(ExitFailure, "invalid fixture", fmt.Errorf("%s: %w", p, err))
		}
		batches = append(batches, quads)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	f := newFormatter(cmd, opts)
	total := 0
	for i, quads := range batches {
		if err := st.Sudo().Insert(ctx, quads...); err != nil {
			return WrapExitError(ExitCommandError, "failed to insert facts", fmt.Errorf("%s: %w", paths[i], err))
		}
		total += len(quads)
		f.VerboseLog("%s: %d facts", paths[i], len(quads))
	}
	if f.JSON() {
		return f.Success(map[string]int{"files": len(paths), "facts": total})
	}
	return f.Success(fmt.Sprintf("%d facts loaded from %d files", total, len(paths)))
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	var nquads bool
	cmd := &cobra.Command{
		Use:   "dump [graph-iri]...",
		Short: "Print graphs as a fixture document or N-Quads",
		Long: `Print the facts of the given graphs in canonical order. Without
arguments every graph is printed. The default output is a fixture document
that load accepts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(rootOpts, args, nquads, cmd)
		},
	}
	cmd.Flags().BoolVar(&nquads, "nquads", false, "print N-Quads instead of a fixture document")
	return cmd
}

func runDump(opts *RootOptions, graphs []string, nquads bool, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	client := st.Sudo()
	if len(graphs) == 0 {
		if graphs, err = client.Graphs(ctx); err != nil {
			return WrapExitError(ExitCommandError, "failed to list graphs", err)
		}
	}

	var quads []ir.Quad
	for _, g := range graphs {
		qs, err := client.Graph(ctx, g)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read graph", err)
		}
		quads = append(quads, qs...)
	}
	ir.SortQuads(quads)

	f := newFormatter(cmd, opts)
	if nquads {
		lines := make([]string, len(quads))
		for i, q := range quads {
			lines[i] = q.String() + " ."
		}
		if f.JSON() {
			return f.Success(lines)
		}
		if len(lines) == 0 {
			return nil
		}
		_, err := fmt.Fprint(cmd.OutOrStdout(), strings.Join(lines, "\n")+"\n")
		return err
	}

	doc := fixture.FromQuads(quads)
	if f.JSON() {
		return f.Success(doc)
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
