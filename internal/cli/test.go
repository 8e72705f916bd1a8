package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mandaatsync/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // defaults to <scenarios-dir>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run reconciliation scenarios",
		Long: `Run every scenario file against a fresh temporary store, check its
expectations and assertions, and compare the snapshot of its golden graphs with
<golden-dir>/<name>.golden when the scenario lists golden graphs.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  mandaatsync test ./scenarios
  mandaatsync test ./scenarios --filter "overlap*"
  mandaatsync test ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	if opts.GoldenDir == "" {
		opts.GoldenDir = filepath.Join(dir, "golden")
	}

	files, err := findYAMLFiles(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	f := newFormatter(cmd, opts.RootOptions)
	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		sr := runScenario(commandContext(cmd), file, opts)
		if sr.Pass {
			result.Passed++
			f.Textf("✓ %s", sr.Name)
		} else {
			result.Failed++
			f.Textf("✗ %s", sr.Name)
			for _, e := range sr.Errors {
				f.Textf("  %s", e)
			}
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	if f.JSON() {
		if result.Failed > 0 {
			if err := f.Error("E_TEST_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), result); err != nil {
				return err
			}
		} else if err := f.Success(result); err != nil {
			return err
		}
	} else {
		f.Textf("\nTest Summary: %d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func runScenario(ctx context.Context, file string, opts *TestOptions) ScenarioResult {
	sc, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: filepath.Base(file), Errors: []string{err.Error()}}
	}
	sr := ScenarioResult{Name: sc.Name}

	res, err := harness.Run(ctx, sc)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Errors = append(sr.Errors, res.Errors...)

	if len(sc.Golden) > 0 {
		if err := checkGolden(sc.Name, res.Snapshot, opts); err != nil {
			sr.Errors = append(sr.Errors, err.Error())
		}
	}
	sr.Pass = len(sr.Errors) == 0
	return sr
}

func checkGolden(name, snapshot string, opts *TestOptions) error {
	path := filepath.Join(opts.GoldenDir, name+".golden")
	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		return os.WriteFile(path, []byte(snapshot), 0o644)
	}

	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if string(want) != snapshot {
		return fmt.Errorf("snapshot does not match %s (run with --update to regenerate):\n%s",
			path, diffLines(string(want), snapshot))
	}
	return nil
}

// diffLines lists lines missing from got ("-") and unexpected in got ("+").
func diffLines(want, got string) string {
	wantSet := make(map[string]bool)
	for _, l := range strings.Split(want, "\n") {
		wantSet[l] = true
	}
	gotSet := make(map[string]bool)
	for _, l := range strings.Split(got, "\n") {
		gotSet[l] = true
	}
	var b strings.Builder
	for _, l := range strings.Split(want, "\n") {
		if !gotSet[l] {
			fmt.Fprintf(&b, "  - %s\n", l)
		}
	}
	for _, l := range strings.Split(got, "\n") {
		if !wantSet[l] {
			fmt.Fprintf(&b, "  + %s\n", l)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
