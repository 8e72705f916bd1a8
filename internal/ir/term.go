package ir

import (
	"fmt"
	"strings"
	"time"
)

// TermKind distinguishes IRIs from literals.
type TermKind uint8

const (
	// KindIRI is a resource reference.
	KindIRI TermKind = iota + 1
	// KindLiteral is a lexical value with optional datatype or language.
	KindLiteral
)

// String returns the storage code of the kind ("iri" or "literal").
func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// ParseTermKind is the inverse of TermKind.String.
func ParseTermKind(s string) (TermKind, error) {
	switch s {
	case "iri":
		return KindIRI, nil
	case "literal":
		return KindLiteral, nil
	default:
		return 0, fmt.Errorf("unknown term kind %q", s)
	}
}

// XSD datatypes used by the mandate vocabulary.
const (
	XSDString   = "http://www.w3.org/2001/XMLSchema#string"
	XSDDateTime = "http://www.w3.org/2001/XMLSchema#dateTime"
	XSDDate     = "http://www.w3.org/2001/XMLSchema#date"
	XSDInteger  = "http://www.w3.org/2001/XMLSchema#integer"
	XSDBoolean  = "http://www.w3.org/2001/XMLSchema#boolean"
)

// DateTimeLayout is the lexical form written for xsd:dateTime values.
// Fixed width UTC so stored timestamps sort lexically.
const DateTimeLayout = "2006-01-02T15:04:05.000Z"

// Term is an IRI or a literal.
//
// The zero Term is invalid; use IRI, Literal, TypedLiteral or LangLiteral.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string // literal only, empty for plain literals
	Lang     string // literal only, mutually exclusive with Datatype
}

// IRI creates a resource term.
func IRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

// Literal creates a plain literal.
func Literal(v string) Term {
	return Term{Kind: KindLiteral, Value: v}
}

// TypedLiteral creates a literal with a datatype IRI.
func TypedLiteral(v, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

// LangLiteral creates a language-tagged literal.
func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Lang: strings.ToLower(lang)}
}

// DateTime creates an xsd:dateTime literal in UTC.
func DateTime(t time.Time) Term {
	return TypedLiteral(t.UTC().Format(DateTimeLayout), XSDDateTime)
}

// IsZero reports whether t is the zero Term.
func (t Term) IsZero() bool {
	return t.Kind == 0
}

// IsIRI reports whether t is a resource term.
func (t Term) IsIRI() bool {
	return t.Kind == KindIRI
}

// IsLiteral reports whether t is a literal.
func (t Term) IsLiteral() bool {
	return t.Kind == KindLiteral
}

// Time parses an xsd:dateTime or xsd:date literal.
func (t Term) Time() (time.Time, error) {
	if t.Kind != KindLiteral {
		return time.Time{}, fmt.Errorf("term %s is not a literal", t)
	}
	return ParseTime(t.Value)
}

// ParseTime accepts the lexical forms of xsd:dateTime and xsd:date that
// harvested decisions use in practice.
func ParseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02Z07:00",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date/time %q", v)
}

// String renders t in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindLiteral:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	default:
		return "<invalid>"
	}
}

// Key returns the canonical identity of t. Two terms with equal keys denote
// the same value.
func (t Term) Key() string {
	return t.Normalize().String()
}

// Equal compares terms by their canonical key.
func (t Term) Equal(o Term) bool {
	return t.Key() == o.Key()
}

func escapeLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return r.Replace(s)
}
