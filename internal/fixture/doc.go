// Package fixture reads and writes fact fixtures: YAML documents listing
// facts per storage area, validated against an embedded CUE schema.
//
// A fixture looks like:
//
//	prefixes:
//	  ex: http://example.org/
//	graphs:
//	  - graph: ex:org-1
//	    facts:
//	      - {s: ex:m1, p: a, o: {iri: mandaat:Mandataris}}
//	      - {s: ex:m1, p: mandaat:start, o: {value: "2024-01-01T00:00:00Z", datatype: xsd:dateTime}}
//
// Names of the form prefix:local are expanded with the document prefixes and
// the built-in ones (rdf, xsd, mandaat, besluit, org, mu, ext, dct, lmb).
// The predicate "a" stands for rdf:type. Names wrapped in angle brackets are
// taken verbatim.
package fixture
