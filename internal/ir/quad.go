package ir

import "fmt"

// Quad is a single fact inside a named graph.
type Quad struct {
	Graph     string
	Subject   string
	Predicate string
	Object    Term
}

// NewQuad builds a quad, normalising the object.
func NewQuad(graph, subject, predicate string, object Term) Quad {
	return Quad{Graph: graph, Subject: subject, Predicate: predicate, Object: object.Normalize()}
}

// String renders q in N-Quads syntax without the trailing dot.
func (q Quad) String() string {
	return fmt.Sprintf("<%s> <%s> %s <%s>", q.Subject, q.Predicate, q.Object, q.Graph)
}

// Key returns the canonical identity of q.
func (q Quad) Key() string {
	return q.Graph + " " + q.Subject + " " + q.Predicate + " " + q.Object.Key()
}

// Validate checks that every position is filled and the object is well formed.
func (q Quad) Validate() error {
	switch {
	case q.Graph == "":
		return fmt.Errorf("quad %s: graph is required", q)
	case q.Subject == "":
		return fmt.Errorf("quad %s: subject is required", q)
	case q.Predicate == "":
		return fmt.Errorf("quad %s: predicate is required", q)
	case q.Object.IsZero():
		return fmt.Errorf("quad %s: object is required", q)
	case q.Object.IsIRI() && q.Object.Value == "":
		return fmt.Errorf("quad %s: object IRI is empty", q)
	case q.Object.Lang != "" && q.Object.Datatype != "":
		return fmt.Errorf("quad %s: literal cannot carry both language and datatype", q)
	}
	return nil
}

// Pair is the predicate/object part of a fact about a known subject.
type Pair struct {
	Predicate string
	Object    Term
}

// Key returns the canonical identity of p.
func (p Pair) Key() string {
	return p.Predicate + " " + p.Object.Key()
}

// In places p in graph about subject.
func (p Pair) In(graph, subject string) Quad {
	return NewQuad(graph, subject, p.Predicate, p.Object)
}

// Values returns the objects of every pair with the given predicate.
func Values(pairs []Pair, predicate string) []Term {
	var out []Term
	for _, p := range pairs {
		if p.Predicate == predicate {
			out = append(out, p.Object)
		}
	}
	return out
}

// First returns the first object for predicate, if any.
func First(pairs []Pair, predicate string) (Term, bool) {
	for _, p := range pairs {
		if p.Predicate == predicate {
			return p.Object, true
		}
	}
	return Term{}, false
}
