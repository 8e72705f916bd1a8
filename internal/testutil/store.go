package testutil

import (
	"path/filepath"
	"testing"

	"github.com/roach88/mandaatsync/internal/store"
)

// NewStore opens a fresh store in a temp dir, closed at test cleanup.
func NewStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
