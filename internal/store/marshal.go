package store

import (
	"fmt"

	"github.com/roach88/mandaatsync/internal/ir"
)

// objectColumns returns the column values of an object term.
func objectColumns(t ir.Term) (kind, value, datatype, lang string) {
	t = t.Normalize()
	return t.Kind.String(), t.Value, t.Datatype, t.Lang
}

// scanTerm rebuilds an object term from its columns.
func scanTerm(kind, value, datatype, lang string) (ir.Term, error) {
	k, err := ir.ParseTermKind(kind)
	if err != nil {
		return ir.Term{}, fmt.Errorf("scan term: %w", err)
	}
	if k == ir.KindIRI {
		return ir.IRI(value), nil
	}
	return ir.Term{Kind: ir.KindLiteral, Value: value, Datatype: datatype, Lang: lang}, nil
}
