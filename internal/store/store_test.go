package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='quads'").Scan(&name)
	if err != nil {
		t.Errorf("quads table not found after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	if err == nil {
		t.Error("Open() should fail for a path in a missing directory")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should succeed, got %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct{ name, want string }{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.want); err != nil {
			t.Error(err)
		}
	}
}

func TestSchema_QuadsIndexes(t *testing.T) {
	s := createTestStore(t)

	indexes := getTableIndexes(t, s.db, "quads")
	for _, want := range []string{"idx_quads_subject", "idx_quads_object"} {
		if !contains(indexes, want) {
			t.Errorf("quads table missing index %s, indexes: %v", want, indexes)
		}
	}
}

func TestSchema_RejectsUnknownKind(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO quads (graph, subject, predicate, o_kind, o_value) VALUES ('g', 's', 'p', 'blank', 'x')`)
	if err == nil {
		t.Error("insert with unknown o_kind should violate CHECK constraint")
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE quads (
		graph TEXT NOT NULL, subject TEXT NOT NULL, predicate TEXT NOT NULL,
		o_kind TEXT NOT NULL, o_value TEXT NOT NULL,
		o_datatype TEXT NOT NULL DEFAULT '', o_lang TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (graph, subject, predicate, o_kind, o_value, o_datatype, o_lang)
	) WITHOUT ROWID`); err != nil {
		t.Fatalf("failed to create v0 table: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	indexes := getTableIndexes(t, s.db, "quads")
	for _, want := range []string{"idx_quads_object", "idx_quads_graph"} {
		if !contains(indexes, want) {
			t.Errorf("migration did not create %s", want)
		}
	}
}
