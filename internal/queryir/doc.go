// Package queryir provides the graph-pattern query representation used to
// read facts out of the store.
//
// A Query is a conjunction of quad patterns. Every position of a Pattern is
// either a variable or a constant term:
//
//	Query{
//	  Select: []Var{"post"},
//	  Where: []Pattern{
//	    {Graph: IRI(staging), Subject: IRI(ref), Predicate: IRI(vocab.Holds), Object: V("post")},
//	  },
//	}
//
// is the equivalent of
//
//	SELECT ?post WHERE { GRAPH <staging> { <ref> org:holds ?post } }
//
// Variables shared between patterns join them. ExcludeGraphs removes areas
// from every variable graph position, which is how the ownership chain is
// searched "everywhere except staging".
//
// Node is a sealed interface: only Var and Const implement it, so backend
// compilers can switch over it exhaustively.
//
// Queries are validated with Validate before compilation. The SQL backend
// lives in package querysql.
package queryir
