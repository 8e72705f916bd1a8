package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migrations upgrade databases created by older builds. Entry i moves
// user_version from i to i+1; new databases get the same indexes from
// schema.sql and run every step as a no-op.
var migrations = []string{
	// v1: reverse lookups on (predicate, object), used by the ownership chain
	// (post <- org:hasPost) and by decision lookups.
	`CREATE INDEX IF NOT EXISTS idx_quads_object ON quads(predicate, o_value)`,
	// v2: per-graph predicate scans, used by the queue and notification reads.
	`CREATE INDEX IF NOT EXISTS idx_quads_graph ON quads(graph, predicate)`,
}

var currentSchemaVersion = len(migrations)

// ErrForbidden is returned when a scoped client writes outside its graphs.
var ErrForbidden = errors.New("graph not accessible")

// Store holds every graph in one SQLite table. Reads and writes go through
// a Client, which may be scoped to a set of graphs.
type Store struct {
	db      *sql.DB
	changes atomic.Int64
}

// Open creates or opens the fact database at path and brings its schema up
// to date. Opening an existing database keeps its facts.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Changes returns the number of rows inserted or deleted since Open.
func (s *Store) Changes() int64 {
	return s.changes.Load()
}

// Sudo returns a client that reads and writes every graph.
func (s *Store) Sudo() *Client {
	return &Client{store: s}
}

// As returns a client restricted to graphs.
func (s *Store) As(graphs ...string) *Client {
	allowed := make([]string, len(graphs))
	copy(allowed, graphs)
	return &Client{store: s, allowed: allowed}
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates missing tables and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies the migrations above user_version in order.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for v := version; v < len(migrations); v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
