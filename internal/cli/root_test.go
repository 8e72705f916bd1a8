package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "tick", "enqueue", "reconcile", "load", "dump", "validate", "test"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"verbose", "format", "env-file", "db"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", "--format", "xml", "testdata/appointment.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// withDB prefixes args with a temporary database and an env file that
// does not exist, so the developer's .env files are never read.
func withDB(t *testing.T, db string, args ...string) []string {
	t.Helper()
	none := filepath.Join(t.TempDir(), "none.env")
	return append([]string{"--db", db, "--env-file", none}, args...)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	return string(b), err
}
