package queryir

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidQuery is wrapped by every error returned from Validate.
var ErrInvalidQuery = errors.New("invalid query")

var varName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that q can be compiled.
//
// Rules:
//  1. At least one pattern
//  2. Every position filled with a Var or Const
//  3. Graph, subject and predicate constants are IRIs
//  4. Variable names are identifiers
//  5. Every selected variable occurs in a pattern
//  6. Limit is non-negative and excluded graphs are non-empty IRIs
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	if len(q.Where) == 0 {
		return fmt.Errorf("%w: no patterns", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, q.Limit)
	}
	for _, g := range q.ExcludeGraphs {
		if g == "" {
			return fmt.Errorf("%w: empty excluded graph", ErrInvalidQuery)
		}
	}

	bound := make(map[Var]bool)
	for i, p := range q.Where {
		for pos, n := range p.Nodes() {
			if err := validateNode(n, pos); err != nil {
				return fmt.Errorf("%w: pattern %d %s: %v", ErrInvalidQuery, i, PositionName(pos), err)
			}
			if v, ok := n.(Var); ok {
				bound[v] = true
			}
		}
	}

	seen := make(map[Var]bool, len(q.Select))
	for _, v := range q.Select {
		if !bound[v] {
			return fmt.Errorf("%w: selected variable ?%s is not bound by any pattern", ErrInvalidQuery, v)
		}
		if seen[v] {
			return fmt.Errorf("%w: variable ?%s selected twice", ErrInvalidQuery, v)
		}
		seen[v] = true
	}
	return nil
}

func validateNode(n Node, pos int) error {
	switch node := n.(type) {
	case nil:
		return errors.New("missing node")
	case Var:
		if !varName.MatchString(string(node)) {
			return fmt.Errorf("malformed variable name %q", string(node))
		}
	case Const:
		if node.Term.IsZero() {
			return errors.New("zero term")
		}
		if pos != PosObject && !node.Term.IsIRI() {
			return fmt.Errorf("constant %s must be an IRI", node.Term)
		}
	default:
		return fmt.Errorf("unknown node type %T", n)
	}
	return nil
}

// Vars returns the distinct variables of q in first-occurrence order.
func Vars(q Query) []Var {
	var out []Var
	seen := make(map[Var]bool)
	for _, p := range q.Where {
		for _, n := range p.Nodes() {
			if v, ok := n.(Var); ok && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}
