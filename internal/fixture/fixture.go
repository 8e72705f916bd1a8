package fixture

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/vocab"
)

//go:embed schema.cue
var schemaSource string

// ErrInvalidFixture is returned when a document does not match the schema
// or names an unknown prefix.
var ErrInvalidFixture = errors.New("fixture: invalid document")

// Document is a fixture file.
type Document struct {
	Prefixes map[string]string `yaml:"prefixes,omitempty" json:"prefixes,omitempty"`
	Graphs   []Graph           `yaml:"graphs" json:"graphs"`
}

// Graph lists the facts of one storage area.
type Graph struct {
	Graph string `yaml:"graph" json:"graph"`
	Facts []Fact `yaml:"facts" json:"facts"`
}

// Fact is one subject/predicate/object statement.
type Fact struct {
	S string `yaml:"s" json:"s"`
	P string `yaml:"p" json:"p"`
	O Object `yaml:"o" json:"o"`
}

// Object is either an IRI or a literal.
type Object struct {
	IRI      string  `yaml:"iri,omitempty" json:"iri,omitempty"`
	Value    *string `yaml:"value,omitempty" json:"value,omitempty"`
	Datatype string  `yaml:"datatype,omitempty" json:"datatype,omitempty"`
	Lang     string  `yaml:"lang,omitempty" json:"lang,omitempty"`
}

// BuiltinPrefixes are available in every document.
var BuiltinPrefixes = map[string]string{
	"rdf":     vocab.RDF,
	"xsd":     vocab.XSD,
	"mandaat": vocab.Mandaat,
	"besluit": vocab.Besluit,
	"org":     vocab.Org,
	"mu":      vocab.Mu,
	"ext":     vocab.Ext,
	"dct":     vocab.DCT,
	"lmb":     vocab.LMB,
}

// Parse decodes and validates a YAML fixture. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidFixture)
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Load reads and parses a fixture file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Validate checks doc against the CUE schema.
func Validate(doc *Document) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile fixture schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Fixture"))
	v := def.Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return nil
}

// Quads expands the document into normalised quads in document order.
func (d *Document) Quads() ([]ir.Quad, error) {
	var out []ir.Quad
	for gi, g := range d.Graphs {
		graph, err := d.Expand(g.Graph)
		if err != nil {
			return nil, fmt.Errorf("graphs[%d].graph: %w", gi, err)
		}
		for fi, f := range g.Facts {
			q, err := d.quad(graph, f)
			if err != nil {
				return nil, fmt.Errorf("graphs[%d].facts[%d]: %w", gi, fi, err)
			}
			out = append(out, q)
		}
	}
	return out, nil
}

// Quad expands one fact of the named area.
func (d *Document) Quad(graph string, f Fact) (ir.Quad, error) {
	graph, err := d.Expand(graph)
	if err != nil {
		return ir.Quad{}, err
	}
	return d.quad(graph, f)
}

func (d *Document) quad(graph string, f Fact) (ir.Quad, error) {
	s, err := d.Expand(f.S)
	if err != nil {
		return ir.Quad{}, err
	}
	p := vocab.Type
	if f.P != "a" {
		if p, err = d.Expand(f.P); err != nil {
			return ir.Quad{}, err
		}
	}

	var o ir.Term
	switch {
	case f.O.IRI != "":
		iri, err := d.Expand(f.O.IRI)
		if err != nil {
			return ir.Quad{}, err
		}
		o = ir.IRI(iri)
	case f.O.Lang != "":
		o = ir.LangLiteral(deref(f.O.Value), f.O.Lang)
	case f.O.Datatype != "":
		dt, err := d.Expand(f.O.Datatype)
		if err != nil {
			return ir.Quad{}, err
		}
		o = ir.TypedLiteral(deref(f.O.Value), dt)
	default:
		o = ir.Literal(deref(f.O.Value))
	}

	q := ir.NewQuad(graph, s, p, o)
	if err := q.Validate(); err != nil {
		return ir.Quad{}, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return q, nil
}

// Expand resolves a prefixed name, an <iri> or an absolute IRI.
func (d *Document) Expand(name string) (string, error) {
	if strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">") {
		return name[1 : len(name)-1], nil
	}
	if strings.Contains(name, "://") || strings.HasPrefix(name, "urn:") {
		return name, nil
	}
	prefix, local, ok := strings.Cut(name, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q is not an IRI or prefixed name", ErrInvalidFixture, name)
	}
	if ns, ok := d.Prefixes[prefix]; ok {
		return ns + local, nil
	}
	if ns, ok := BuiltinPrefixes[prefix]; ok {
		return ns + local, nil
	}
	return "", fmt.Errorf("%w: unknown prefix %q", ErrInvalidFixture, prefix)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FromQuads builds a document from quads, grouping them per area in
// canonical order and compacting IRIs with the built-in prefixes.
func FromQuads(quads []ir.Quad) *Document {
	sorted := append([]ir.Quad(nil), quads...)
	ir.SortQuads(sorted)

	doc := &Document{Graphs: []Graph{}}
	for _, q := range sorted {
		if n := len(doc.Graphs); n == 0 || doc.Graphs[n-1].Graph != q.Graph {
			doc.Graphs = append(doc.Graphs, Graph{Graph: compact(q.Graph), Facts: []Fact{}})
		}
		g := &doc.Graphs[len(doc.Graphs)-1]

		f := Fact{S: compact(q.Subject), P: compact(q.Predicate)}
		if q.Predicate == vocab.Type {
			f.P = "a"
		}
		if q.Object.IsIRI() {
			f.O.IRI = compact(q.Object.Value)
		} else {
			v := q.Object.Value
			f.O.Value = &v
			f.O.Lang = q.Object.Lang
			if q.Object.Datatype != "" {
				f.O.Datatype = compact(q.Object.Datatype)
			}
		}
		g.Facts = append(g.Facts, f)
	}
	return doc
}

// compact shortens iri with the longest matching built-in namespace.
// IRIs that would not round-trip are wrapped in angle brackets.
func compact(iri string) string {
	prefixes := make([]string, 0, len(BuiltinPrefixes))
	for p := range BuiltinPrefixes {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool {
		return len(BuiltinPrefixes[prefixes[i]]) > len(BuiltinPrefixes[prefixes[j]])
	})
	for _, p := range prefixes {
		ns := BuiltinPrefixes[p]
		if local, ok := strings.CutPrefix(iri, ns); ok && !strings.ContainsAny(local, "/#") {
			return p + ":" + local
		}
	}
	if strings.Contains(iri, "://") || strings.HasPrefix(iri, "urn:") {
		return iri
	}
	return "<" + iri + ">"
}

// Marshal encodes the document as YAML.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
