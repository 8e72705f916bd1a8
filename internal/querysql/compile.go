package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/mandaatsync/internal/queryir"
)

// Column names of the quads table.
var positionColumns = [4]string{"graph", "subject", "predicate", "o_value"}

// Object term columns, in scan order.
var objectColumns = []string{"o_kind", "o_value", "o_datatype", "o_lang"}

// Column describes one selected variable in the result set.
//
// Object variables span four SQL columns (kind, value, datatype, lang).
// Variables first bound in a graph, subject or predicate position span one
// column and are always IRIs.
type Column struct {
	Var    queryir.Var
	Object bool
}

// Width returns the number of SQL columns the variable occupies.
func (c Column) Width() int {
	if c.Object {
		return len(objectColumns)
	}
	return 1
}

// Compiled is a parameterised SQL statement ready for execution.
type Compiled struct {
	SQL     string
	Params  []any
	Columns []Column
}

// Compiler compiles graph-pattern queries to parameterised SQL for SQLite.
//
// CRITICAL: every select includes ORDER BY for deterministic results.
// CRITICAL: all values are parameterized (never interpolated).
type Compiler struct {
	// AllowedGraphs restricts every pattern to these graphs. Nil means
	// unrestricted; an empty non-nil slice matches nothing.
	AllowedGraphs []string
}

// NewCompiler creates an unrestricted Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// binding records where a variable was first bound.
type binding struct {
	alias string
	pos   int
}

type builder struct {
	conds  []string
	params []any
	first  map[queryir.Var]binding
}

func (b *builder) cond(sql string, params ...any) {
	b.conds = append(b.conds, sql)
	b.params = append(b.params, params...)
}

// Select compiles q to a statement returning one row per solution.
func (c *Compiler) Select(q queryir.Query) (Compiled, error) {
	if len(q.Select) == 0 {
		return Compiled{}, fmt.Errorf("select query must project at least one variable")
	}
	b, from, err := c.compileWhere(q)
	if err != nil {
		return Compiled{}, err
	}

	var cols []string
	var order []string
	var columns []Column
	for i, v := range q.Select {
		first := b.first[v]
		col := Column{Var: v, Object: first.pos == queryir.PosObject}
		columns = append(columns, col)
		if col.Object {
			for j, name := range objectColumns {
				alias := fmt.Sprintf("v%d_%d", i, j)
				cols = append(cols, fmt.Sprintf("%s.%s AS %s", first.alias, name, alias))
				order = append(order, alias+" COLLATE BINARY ASC")
			}
			continue
		}
		alias := fmt.Sprintf("v%d", i)
		cols = append(cols, fmt.Sprintf("%s.%s AS %s", first.alias, positionColumns[first.pos], alias))
		order = append(order, alias+" COLLATE BINARY ASC")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.Distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(from)
	writeWhere(&sb, b.conds)
	// MANDATORY: Always add ORDER BY
	sb.WriteString(" ORDER BY ")
	sb.WriteString(strings.Join(order, ", "))
	params := b.params
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}

	return Compiled{SQL: sb.String(), Params: params, Columns: columns}, nil
}

// Ask compiles q to a statement returning at most one row when q has a solution.
func (c *Compiler) Ask(q queryir.Query) (Compiled, error) {
	b, from, err := c.compileWhere(q)
	if err != nil {
		return Compiled{}, err
	}
	var sb strings.Builder
	sb.WriteString("SELECT 1 FROM ")
	sb.WriteString(from)
	writeWhere(&sb, b.conds)
	sb.WriteString(" LIMIT 1")
	return Compiled{SQL: sb.String(), Params: b.params}, nil
}

func writeWhere(sb *strings.Builder, conds []string) {
	if len(conds) == 0 {
		return
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(conds, " AND "))
}

// compileWhere validates q and builds the FROM list and join conditions.
func (c *Compiler) compileWhere(q queryir.Query) (*builder, string, error) {
	if err := queryir.Validate(q); err != nil {
		return nil, "", err
	}

	b := &builder{first: make(map[queryir.Var]binding)}
	var from []string
	for i, p := range q.Where {
		alias := fmt.Sprintf("q%d", i)
		from = append(from, "quads "+alias)

		for pos, n := range p.Nodes() {
			switch node := n.(type) {
			case queryir.Const:
				c.compileConst(b, alias, pos, node)
			case queryir.Var:
				c.compileVar(b, alias, pos, node)
			default:
				return nil, "", fmt.Errorf("unsupported node type: %T", n)
			}
		}

		if _, ok := p.Graph.(queryir.Var); ok && len(q.ExcludeGraphs) > 0 {
			b.cond(fmt.Sprintf("%s.graph NOT IN (%s)", alias, placeholders(len(q.ExcludeGraphs))), strParams(q.ExcludeGraphs)...)
		}
		if c.AllowedGraphs != nil {
			if len(c.AllowedGraphs) == 0 {
				b.cond("0 = 1")
			} else {
				b.cond(fmt.Sprintf("%s.graph IN (%s)", alias, placeholders(len(c.AllowedGraphs))), strParams(c.AllowedGraphs)...)
			}
		}
	}
	return b, strings.Join(from, ", "), nil
}

// compileConst pins a position to a constant term.
// CRITICAL: Value is NEVER interpolated - always parameterized.
func (c *Compiler) compileConst(b *builder, alias string, pos int, node queryir.Const) {
	t := node.Term.Normalize()
	if pos != queryir.PosObject {
		b.cond(fmt.Sprintf("%s.%s = ?", alias, positionColumns[pos]), t.Value)
		return
	}
	b.cond(fmt.Sprintf("%s.o_kind = ? AND %s.o_value = ? AND %s.o_datatype = ? AND %s.o_lang = ?", alias, alias, alias, alias),
		t.Kind.String(), t.Value, t.Datatype, t.Lang)
}

// compileVar binds a variable on first use and joins later uses to it.
func (c *Compiler) compileVar(b *builder, alias string, pos int, v queryir.Var) {
	first, ok := b.first[v]
	if !ok {
		b.first[v] = binding{alias: alias, pos: pos}
		return
	}

	here := queryir.PosObject == pos
	there := queryir.PosObject == first.pos
	switch {
	case !here && !there:
		b.cond(fmt.Sprintf("%s.%s = %s.%s", alias, positionColumns[pos], first.alias, positionColumns[first.pos]))
	case here && there:
		var parts []string
		for _, col := range objectColumns {
			parts = append(parts, fmt.Sprintf("%s.%s = %s.%s", alias, col, first.alias, col))
		}
		b.cond(strings.Join(parts, " AND "))
	case here:
		b.cond(fmt.Sprintf("%s.o_kind = ? AND %s.o_value = %s.%s", alias, alias, first.alias, positionColumns[first.pos]), "iri")
	default:
		b.cond(fmt.Sprintf("%s.o_kind = ? AND %s.o_value = %s.%s", first.alias, first.alias, alias, positionColumns[pos]), "iri")
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func strParams(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
