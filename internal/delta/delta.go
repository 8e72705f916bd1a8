// Package delta reads change-set notifications and selects the mandate
// references that a ratifying decision points at.
//
// Change-sets use the mu-semtech delta JSON shape:
//
//	[{"inserts": [{"graph": {...}, "subject": {...}, "predicate": {...}, "object": {...}}],
//	  "deletes": [...]}]
//
// where each position is {"type": "uri"|"literal"|"typed-literal", "value": "…",
// "datatype": "…", "xml:lang": "…"}.
package delta

import (
	"fmt"

	"github.com/roach88/mandaatsync/internal/ir"
)

// Term types of the delta format.
const (
	TypeURI          = "uri"
	TypeLiteral      = "literal"
	TypeTypedLiteral = "typed-literal"
)

// Value is one position of a delta fact.
type Value struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Term converts v to an ir.Term.
func (v Value) Term() (ir.Term, error) {
	switch v.Type {
	case TypeURI:
		return ir.IRI(v.Value), nil
	case TypeLiteral, TypeTypedLiteral:
		if v.Lang != "" {
			return ir.LangLiteral(v.Value, v.Lang), nil
		}
		return ir.TypedLiteral(v.Value, v.Datatype), nil
	default:
		return ir.Term{}, fmt.Errorf("unknown delta term type %q", v.Type)
	}
}

// FromTerm converts t to its delta representation.
func FromTerm(t ir.Term) Value {
	if t.IsIRI() {
		return Value{Type: TypeURI, Value: t.Value}
	}
	if t.Datatype != "" {
		return Value{Type: TypeTypedLiteral, Value: t.Value, Datatype: t.Datatype}
	}
	return Value{Type: TypeLiteral, Value: t.Value, Lang: t.Lang}
}

// Fact is one inserted or deleted quad.
type Fact struct {
	Graph     Value `json:"graph"`
	Subject   Value `json:"subject"`
	Predicate Value `json:"predicate"`
	Object    Value `json:"object"`
}

// Quad converts f to an ir.Quad. Graph, subject and predicate must be URIs.
func (f Fact) Quad() (ir.Quad, error) {
	for name, v := range map[string]Value{"graph": f.Graph, "subject": f.Subject, "predicate": f.Predicate} {
		if v.Type != TypeURI {
			return ir.Quad{}, fmt.Errorf("%s must be a uri, got %q", name, v.Type)
		}
	}
	obj, err := f.Object.Term()
	if err != nil {
		return ir.Quad{}, err
	}
	return ir.NewQuad(f.Graph.Value, f.Subject.Value, f.Predicate.Value, obj), nil
}

// FactOf converts q to a delta fact.
func FactOf(q ir.Quad) Fact {
	return Fact{
		Graph:     Value{Type: TypeURI, Value: q.Graph},
		Subject:   Value{Type: TypeURI, Value: q.Subject},
		Predicate: Value{Type: TypeURI, Value: q.Predicate},
		Object:    FromTerm(q.Object),
	}
}

// ChangeSet is one delivered batch of inserts and deletes.
type ChangeSet struct {
	Inserts []Fact `json:"inserts"`
	Deletes []Fact `json:"deletes"`
}
