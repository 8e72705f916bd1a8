package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/mandaatsync/internal/ir"
)

const (
	testGraph  = "http://mu.semte.ch/graphs/test"
	otherGraph = "http://mu.semte.ch/graphs/other"
	pName      = "http://xmlns.com/foaf/0.1/name"
	pKnows     = "http://xmlns.com/foaf/0.1/knows"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func lit(g, s, p, v string) ir.Quad {
	return ir.NewQuad(g, s, p, ir.Literal(v))
}

func ref(g, s, p, o string) ir.Quad {
	return ir.NewQuad(g, s, p, ir.IRI(o))
}

// getTableIndexes returns the index names of a table.
func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to list indexes: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index name: %v", err)
		}
		names = append(names, name)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
