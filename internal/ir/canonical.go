package ir

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns t in canonical form: literal values NFC normalised and
// language tags lower-cased. IRIs are returned unchanged.
func (t Term) Normalize() Term {
	if t.Kind != KindLiteral {
		return t
	}
	out := t
	out.Value = norm.NFC.String(t.Value)
	out.Lang = strings.ToLower(t.Lang)
	if out.Datatype == XSDString {
		out.Datatype = ""
	}
	return out
}

// ComparePairs orders pairs by predicate, then object key.
func ComparePairs(a, b Pair) int {
	if c := cmp.Compare(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	return cmp.Compare(a.Object.Key(), b.Object.Key())
}

// CompareQuads orders quads by graph, subject, predicate, then object key.
func CompareQuads(a, b Quad) int {
	if c := cmp.Compare(a.Graph, b.Graph); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Subject, b.Subject); c != 0 {
		return c
	}
	return ComparePairs(Pair{a.Predicate, a.Object}, Pair{b.Predicate, b.Object})
}

// SortQuads sorts quads in canonical order in place.
func SortQuads(qs []Quad) {
	slices.SortFunc(qs, CompareQuads)
}

// SortPairs sorts pairs in canonical order in place.
func SortPairs(ps []Pair) {
	slices.SortFunc(ps, ComparePairs)
}

// DedupQuads removes quads with equal keys, keeping the first occurrence.
func DedupQuads(qs []Quad) []Quad {
	seen := make(map[string]struct{}, len(qs))
	out := qs[:0:0]
	for _, q := range qs {
		k := q.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, q)
	}
	return out
}
