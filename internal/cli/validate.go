package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mandaatsync/internal/fixture"
	"github.com/roach88/mandaatsync/internal/harness"
)

// FileResult is the validation outcome of one file.
type FileResult struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"` // "fixture" or "scenario"
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateResult is the output of the validate command.
type ValidateResult struct {
	Files   []FileResult `json:"files"`
	Invalid int          `json:"invalid"`
}

func (r ValidateResult) String() string {
	var b strings.Builder
	for _, f := range r.Files {
		if f.Valid {
			fmt.Fprintf(&b, "✓ %s (%s)\n", f.Path, f.Kind)
		} else {
			fmt.Fprintf(&b, "✗ %s (%s): %s\n", f.Path, f.Kind, f.Error)
		}
	}
	fmt.Fprintf(&b, "%d files, %d invalid", len(r.Files), r.Invalid)
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file-or-dir>...",
		Short: "Validate fixture and scenario files",
		Long: `Validate YAML fixture and scenario files. A document with a top-level
"steps" key is a scenario; anything else is a fixture. Directories are walked
for .yaml and .yml files.

Exit codes:
  0 - all files valid
  1 - one or more files invalid
  2 - a path could not be read`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	var files []string
	for _, p := range paths {
		found, err := findYAMLFiles(p, "")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read path", err)
		}
		files = append(files, found...)
	}

	res := ValidateResult{Files: []FileResult{}}
	for _, path := range files {
		fr := validateFile(path)
		if !fr.Valid {
			res.Invalid++
		}
		res.Files = append(res.Files, fr)
	}

	if err := newFormatter(cmd, opts).Success(res); err != nil {
		return err
	}
	if res.Invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid files", res.Invalid))
	}
	return nil
}

func validateFile(path string) FileResult {
	fr := FileResult{Path: path, Kind: "fixture"}
	data, err := os.ReadFile(path)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}

	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		fr.Error = err.Error()
		return fr
	}
	if _, ok := probe["steps"]; ok {
		fr.Kind = "scenario"
		_, err = harness.ParseScenario(data)
	} else {
		var doc *fixture.Document
		if doc, err = fixture.Parse(data); err == nil {
			_, err = doc.Quads()
		}
	}
	if err != nil {
		fr.Error = err.Error()
		return fr
	}
	fr.Valid = true
	return fr
}

// findYAMLFiles returns path itself if it is a file, or the YAML files
// below it whose base name matches filter.
func findYAMLFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(p), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	return files, err
}
