package store

import (
	"fmt"
	"slices"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/querysql"
)

// Client reads and writes facts on behalf of one access mode.
type Client struct {
	store   *Store
	allowed []string // nil means elevated
}

// Elevated reports whether c bypasses graph scoping.
func (c *Client) Elevated() bool {
	return c.allowed == nil
}

func (c *Client) compiler() *querysql.Compiler {
	return &querysql.Compiler{AllowedGraphs: c.allowed}
}

// checkGraph returns ErrForbidden when graph is outside the client's scope.
func (c *Client) checkGraph(graph string) error {
	if c.allowed == nil || slices.Contains(c.allowed, graph) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrForbidden, graph)
}

func (c *Client) checkQuads(qs []ir.Quad) error {
	for _, q := range qs {
		if err := c.checkGraph(q.Graph); err != nil {
			return err
		}
	}
	return nil
}

// Binding maps variable names to the terms of one solution.
type Binding map[string]ir.Term

// IRI returns the value of an IRI binding, or "" when v is unbound or a literal.
func (b Binding) IRI(v string) string {
	t, ok := b[v]
	if !ok || !t.IsIRI() {
		return ""
	}
	return t.Value
}
