package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/queryir"
	"github.com/roach88/mandaatsync/internal/querysql"
)

// Select evaluates q and returns one Binding per solution.
// Results are ordered by the selected variables.
func (c *Client) Select(ctx context.Context, q queryir.Query) ([]Binding, error) {
	compiled, err := c.compiler().Select(q)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	rows, err := c.store.db.QueryContext(ctx, compiled.SQL, compiled.Params...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	width := 0
	for _, col := range compiled.Columns {
		width += col.Width()
	}

	var out []Binding
	for rows.Next() {
		raw := make([]string, width)
		dest := make([]any, width)
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("select: scan: %w", err)
		}
		b, err := bindRow(compiled.Columns, raw)
		if err != nil {
			return nil, fmt.Errorf("select: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return out, nil
}

func bindRow(columns []querysql.Column, raw []string) (Binding, error) {
	b := make(Binding, len(columns))
	i := 0
	for _, col := range columns {
		if !col.Object {
			b[string(col.Var)] = ir.IRI(raw[i])
			i++
			continue
		}
		t, err := scanTerm(raw[i], raw[i+1], raw[i+2], raw[i+3])
		if err != nil {
			return nil, err
		}
		b[string(col.Var)] = t
		i += col.Width()
	}
	return b, nil
}

// Ask reports whether q has at least one solution.
func (c *Client) Ask(ctx context.Context, q queryir.Query) (bool, error) {
	compiled, err := c.compiler().Ask(q)
	if err != nil {
		return false, fmt.Errorf("ask: %w", err)
	}
	var one int
	err = c.store.db.QueryRowContext(ctx, compiled.SQL, compiled.Params...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ask: %w", err)
	}
	return true, nil
}

// Triples returns every predicate/object pair of subject in graph, in
// canonical order.
func (c *Client) Triples(ctx context.Context, graph, subject string) ([]ir.Pair, error) {
	if c.checkGraph(graph) != nil {
		return nil, nil
	}
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT predicate, o_kind, o_value, o_datatype, o_lang
		FROM quads
		WHERE graph = ? AND subject = ?
		ORDER BY predicate COLLATE BINARY ASC, o_kind COLLATE BINARY ASC,
			o_value COLLATE BINARY ASC, o_datatype COLLATE BINARY ASC, o_lang COLLATE BINARY ASC
	`, graph, subject)
	if err != nil {
		return nil, fmt.Errorf("triples: %w", err)
	}
	defer rows.Close()

	var out []ir.Pair
	for rows.Next() {
		var pred, kind, value, datatype, lang string
		if err := rows.Scan(&pred, &kind, &value, &datatype, &lang); err != nil {
			return nil, fmt.Errorf("triples: scan: %w", err)
		}
		obj, err := scanTerm(kind, value, datatype, lang)
		if err != nil {
			return nil, fmt.Errorf("triples: %w", err)
		}
		out = append(out, ir.Pair{Predicate: pred, Object: obj})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("triples: %w", err)
	}
	return out, nil
}

// Graph returns every quad of graph in canonical order.
func (c *Client) Graph(ctx context.Context, graph string) ([]ir.Quad, error) {
	if c.checkGraph(graph) != nil {
		return nil, nil
	}
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT subject, predicate, o_kind, o_value, o_datatype, o_lang
		FROM quads
		WHERE graph = ?
		ORDER BY subject COLLATE BINARY ASC, predicate COLLATE BINARY ASC, o_kind COLLATE BINARY ASC,
			o_value COLLATE BINARY ASC, o_datatype COLLATE BINARY ASC, o_lang COLLATE BINARY ASC
	`, graph)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	defer rows.Close()

	var out []ir.Quad
	for rows.Next() {
		var subj, pred, kind, value, datatype, lang string
		if err := rows.Scan(&subj, &pred, &kind, &value, &datatype, &lang); err != nil {
			return nil, fmt.Errorf("graph: scan: %w", err)
		}
		obj, err := scanTerm(kind, value, datatype, lang)
		if err != nil {
			return nil, fmt.Errorf("graph: %w", err)
		}
		out = append(out, ir.Quad{Graph: graph, Subject: subj, Predicate: pred, Object: obj})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return out, nil
}

// Graphs lists the graphs holding at least one fact visible to c.
func (c *Client) Graphs(ctx context.Context) ([]string, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT DISTINCT graph FROM quads ORDER BY graph COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("graphs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("graphs: scan: %w", err)
		}
		if c.checkGraph(g) == nil {
			out = append(out, g)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("graphs: %w", err)
	}
	return out, nil
}
