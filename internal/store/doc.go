// Package store provides the SQLite-backed fact store.
//
// Facts are quads {graph, subject, predicate, object} in a single table
// whose primary key spans every column, so inserts are idempotent.
//
// Reads and writes go through a Client:
//   - Store.Sudo returns an elevated client that sees every graph. Background
//     components use it because they run outside any user session.
//   - Store.As returns a client scoped to a set of graphs. Reads are filtered
//     to those graphs and writes elsewhere fail with ErrForbidden.
//
// # Critical Patterns
//
// Atomic updates: Client.Update applies deletes then inserts inside one
// transaction. A failed update leaves the store unchanged.
//
// Deterministic reads: every query is ordered with COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: SQLite allows a single writer
package store
