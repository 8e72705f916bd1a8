package queryir

import "github.com/roach88/mandaatsync/internal/ir"

// Node is one position of a Pattern: a Var or a Const.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	node() // Marker method - seals interface to this package
}

// Var is a named variable. The name excludes the leading '?'.
type Var string

func (Var) node() {}

// Const is a fixed term.
type Const struct {
	Term ir.Term
}

func (Const) node() {}

// V returns the variable named name.
func V(name string) Var { return Var(name) }

// IRI returns a constant IRI node.
func IRI(iri string) Const { return Const{Term: ir.IRI(iri)} }

// Term returns a constant node for an arbitrary term.
func Term(t ir.Term) Const { return Const{Term: t.Normalize()} }

// Pattern matches one quad.
type Pattern struct {
	Graph     Node
	Subject   Node
	Predicate Node
	Object    Node
}

// Nodes returns the positions of p in graph, subject, predicate, object order.
func (p Pattern) Nodes() [4]Node {
	return [4]Node{p.Graph, p.Subject, p.Predicate, p.Object}
}

// Query is a conjunctive graph-pattern query.
type Query struct {
	// Select lists the variables returned per solution, in column order.
	// Empty for ask-style queries.
	Select []Var

	// Where holds the patterns; all must match.
	Where []Pattern

	// ExcludeGraphs are removed from every variable graph position.
	ExcludeGraphs []string

	// Distinct collapses duplicate solutions.
	Distinct bool

	// Limit caps the number of solutions; zero means unlimited.
	Limit int
}

// Position names, used in error messages and by backends.
const (
	PosGraph     = 0
	PosSubject   = 1
	PosPredicate = 2
	PosObject    = 3
)

// PositionName returns the name of a pattern position.
func PositionName(pos int) string {
	switch pos {
	case PosGraph:
		return "graph"
	case PosSubject:
		return "subject"
	case PosPredicate:
		return "predicate"
	case PosObject:
		return "object"
	default:
		return "unknown"
	}
}
