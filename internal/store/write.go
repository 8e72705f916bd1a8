package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/mandaatsync/internal/ir"
)

// Update is a declarative delete+insert over quads.
type Update struct {
	Deletes []ir.Quad
	Inserts []ir.Quad
}

// IsEmpty reports whether u changes nothing.
func (u Update) IsEmpty() bool {
	return len(u.Deletes) == 0 && len(u.Inserts) == 0
}

// Update applies the deletes, then the inserts, in one transaction.
// Inserts use ON CONFLICT DO NOTHING; deleting an absent quad is a no-op.
// Every quad must be valid and inside the client's scope.
func (c *Client) Update(ctx context.Context, u Update) error {
	if u.IsEmpty() {
		return nil
	}
	for _, qs := range [][]ir.Quad{u.Deletes, u.Inserts} {
		for _, q := range qs {
			if err := q.Validate(); err != nil {
				return fmt.Errorf("update: %w", err)
			}
		}
		if err := c.checkQuads(qs); err != nil {
			return fmt.Errorf("update: %w", err)
		}
	}

	return c.store.inTx(ctx, "update", func(tx *sql.Tx) (int64, error) {
		var changed int64
		for _, q := range u.Deletes {
			kind, value, datatype, lang := objectColumns(q.Object)
			res, err := tx.ExecContext(ctx, `
				DELETE FROM quads
				WHERE graph = ? AND subject = ? AND predicate = ?
				AND o_kind = ? AND o_value = ? AND o_datatype = ? AND o_lang = ?
			`, q.Graph, q.Subject, q.Predicate, kind, value, datatype, lang)
			if err != nil {
				return 0, fmt.Errorf("delete %s: %w", q, err)
			}
			changed += rowsAffected(res)
		}
		for _, q := range u.Inserts {
			kind, value, datatype, lang := objectColumns(q.Object)
			res, err := tx.ExecContext(ctx, `
				INSERT INTO quads (graph, subject, predicate, o_kind, o_value, o_datatype, o_lang)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, q.Graph, q.Subject, q.Predicate, kind, value, datatype, lang)
			if err != nil {
				return 0, fmt.Errorf("insert %s: %w", q, err)
			}
			changed += rowsAffected(res)
		}
		return changed, nil
	})
}

// Insert is shorthand for an insert-only Update.
func (c *Client) Insert(ctx context.Context, quads ...ir.Quad) error {
	return c.Update(ctx, Update{Inserts: quads})
}

// DeleteSubjects removes every fact of subjects in graph in one transaction.
func (c *Client) DeleteSubjects(ctx context.Context, graph string, subjects []string) error {
	if len(subjects) == 0 {
		return nil
	}
	if err := c.checkGraph(graph); err != nil {
		return fmt.Errorf("delete subjects: %w", err)
	}
	return c.store.inTx(ctx, "delete subjects", func(tx *sql.Tx) (int64, error) {
		var changed int64
		for _, s := range subjects {
			res, err := tx.ExecContext(ctx, `DELETE FROM quads WHERE graph = ? AND subject = ?`, graph, s)
			if err != nil {
				return 0, fmt.Errorf("delete %s: %w", s, err)
			}
			changed += rowsAffected(res)
		}
		return changed, nil
	})
}

// inTx runs fn in a transaction and records the rows it changed.
func (s *Store) inTx(ctx context.Context, op string, fn func(*sql.Tx) (int64, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback() // No-op if committed

	changed, err := fn(tx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	s.changes.Add(changed)
	return nil
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
