// Package ir provides the value model shared by every other package: RDF-style
// terms, quads, predicate/object pairs and the id and clock abstractions that
// make writes deterministic under test.
//
// This package imports nothing internal. Graph, subject and predicate are
// always IRIs; only objects may be literals.
package ir
