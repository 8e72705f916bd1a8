package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/queryir"
)

const (
	staging = "http://g/staging"
	holds   = "http://www.w3.org/ns/org#holds"
	hasPost = "http://www.w3.org/ns/org#hasPost"
)

func TestSelect_SinglePattern(t *testing.T) {
	q := queryir.Query{
		Select: []queryir.Var{"post"},
		Where: []queryir.Pattern{{
			Graph:     queryir.IRI(staging),
			Subject:   queryir.IRI("http://data/m1"),
			Predicate: queryir.IRI(holds),
			Object:    queryir.V("post"),
		}},
	}

	got, err := NewCompiler().Select(q)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT q0.o_kind AS v0_0, q0.o_value AS v0_1, q0.o_datatype AS v0_2, q0.o_lang AS v0_3 "+
			"FROM quads q0 WHERE q0.graph = ? AND q0.subject = ? AND q0.predicate = ? "+
			"ORDER BY v0_0 COLLATE BINARY ASC, v0_1 COLLATE BINARY ASC, v0_2 COLLATE BINARY ASC, v0_3 COLLATE BINARY ASC",
		got.SQL)
	assert.Equal(t, []any{staging, "http://data/m1", holds}, got.Params)
	require.Len(t, got.Columns, 1)
	assert.True(t, got.Columns[0].Object)
	assert.Equal(t, 4, got.Columns[0].Width())
}

func TestSelect_JoinObjectToSubject(t *testing.T) {
	q := queryir.Query{
		Select: []queryir.Var{"g"},
		Where: []queryir.Pattern{
			{Graph: queryir.IRI(staging), Subject: queryir.IRI("http://data/m1"), Predicate: queryir.IRI(holds), Object: queryir.V("post")},
			{Graph: queryir.V("g"), Subject: queryir.V("bot"), Predicate: queryir.IRI(hasPost), Object: queryir.V("post")},
		},
		ExcludeGraphs: []string{staging},
		Distinct:      true,
		Limit:         2,
	}

	got, err := NewCompiler().Select(q)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT DISTINCT q1.graph AS v0 FROM quads q0, quads q1 "+
			"WHERE q0.graph = ? AND q0.subject = ? AND q0.predicate = ? "+
			"AND q1.predicate = ? "+
			"AND q1.o_kind = q0.o_kind AND q1.o_value = q0.o_value AND q1.o_datatype = q0.o_datatype AND q1.o_lang = q0.o_lang "+
			"AND q1.graph NOT IN (?) "+
			"ORDER BY v0 COLLATE BINARY ASC LIMIT ?",
		got.SQL)
	assert.Equal(t, []any{staging, "http://data/m1", holds, hasPost, staging, 2}, got.Params)
	assert.False(t, got.Columns[0].Object)
}

func TestSelect_ObjectVarReusedAsSubject(t *testing.T) {
	q := queryir.Query{
		Select: []queryir.Var{"org"},
		Where: []queryir.Pattern{
			{Graph: queryir.V("g1"), Subject: queryir.IRI("http://bo"), Predicate: queryir.IRI("http://bestuurt"), Object: queryir.V("org")},
			{Graph: queryir.V("g2"), Subject: queryir.V("org"), Predicate: queryir.IRI("http://uuid"), Object: queryir.V("id")},
		},
	}

	got, err := NewCompiler().Select(q)
	require.NoError(t, err)
	assert.Contains(t, got.SQL, "q0.o_kind = ? AND q0.o_value = q1.subject")
	assert.Equal(t, []any{"http://bo", "http://bestuurt", "iri", "http://uuid"}, got.Params)
}

func TestSelect_LiteralConstantObject(t *testing.T) {
	q := queryir.Query{
		Select: []queryir.Var{"s"},
		Where: []queryir.Pattern{{
			Graph: queryir.IRI("http://g"), Subject: queryir.V("s"),
			Predicate: queryir.IRI("http://p"), Object: queryir.Term(ir.LangLiteral("Schepen", "nl")),
		}},
	}
	got, err := NewCompiler().Select(q)
	require.NoError(t, err)
	assert.Contains(t, got.SQL, "q0.o_kind = ? AND q0.o_value = ? AND q0.o_datatype = ? AND q0.o_lang = ?")
	assert.Equal(t, []any{"http://g", "http://p", "literal", "Schepen", "", "nl"}, got.Params)
}

func TestCompiler_AllowedGraphs(t *testing.T) {
	q := queryir.Query{
		Select: []queryir.Var{"s"},
		Where:  []queryir.Pattern{{Graph: queryir.V("g"), Subject: queryir.V("s"), Predicate: queryir.IRI("http://p"), Object: queryir.V("o")}},
	}

	scoped := &Compiler{AllowedGraphs: []string{"http://a", "http://b"}}
	got, err := scoped.Select(q)
	require.NoError(t, err)
	assert.Contains(t, got.SQL, "q0.graph IN (?, ?)")
	assert.Equal(t, []any{"http://p", "http://a", "http://b"}, got.Params)

	none := &Compiler{AllowedGraphs: []string{}}
	got, err = none.Select(q)
	require.NoError(t, err)
	assert.Contains(t, got.SQL, "0 = 1")
}

func TestAsk(t *testing.T) {
	q := queryir.Query{
		Where: []queryir.Pattern{{
			Graph: queryir.IRI("http://g"), Subject: queryir.IRI("http://s"),
			Predicate: queryir.IRI("http://p"), Object: queryir.V("o"),
		}},
	}
	got, err := NewCompiler().Ask(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM quads q0 WHERE q0.graph = ? AND q0.subject = ? AND q0.predicate = ? LIMIT 1", got.SQL)
}

func TestSelect_RequiresProjection(t *testing.T) {
	q := queryir.Query{Where: []queryir.Pattern{{
		Graph: queryir.V("g"), Subject: queryir.V("s"), Predicate: queryir.V("p"), Object: queryir.V("o"),
	}}}
	_, err := NewCompiler().Select(q)
	assert.Error(t, err)
}

func TestSelect_InvalidQuery(t *testing.T) {
	_, err := NewCompiler().Select(queryir.Query{Select: []queryir.Var{"x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, queryir.ErrInvalidQuery)
}

func TestSelect_AlwaysOrdered(t *testing.T) {
	q := queryir.Query{
		Select: []queryir.Var{"s", "o"},
		Where:  []queryir.Pattern{{Graph: queryir.V("g"), Subject: queryir.V("s"), Predicate: queryir.V("p"), Object: queryir.V("o")}},
	}
	got, err := NewCompiler().Select(q)
	require.NoError(t, err)
	assert.True(t, strings.Contains(got.SQL, " ORDER BY v0 COLLATE BINARY ASC, v1_0"))
	assert.Empty(t, got.Params)
	assert.NotContains(t, got.SQL, "WHERE")
}
