package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/queryir"
)

func TestUpdate_InsertIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	q := lit(testGraph, "http://s/1", pName, "Jan")
	require.NoError(t, c.Insert(ctx, q))
	before := s.Changes()
	require.NoError(t, c.Insert(ctx, q))

	assert.Equal(t, before, s.Changes(), "second insert changes nothing")
	quads, err := c.Graph(ctx, testGraph)
	require.NoError(t, err)
	assert.Len(t, quads, 1)
}

func TestUpdate_DeletesThenInserts(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	require.NoError(t, c.Insert(ctx, lit(testGraph, "http://s/1", pName, "Jan")))
	require.NoError(t, c.Update(ctx, Update{
		Deletes: []ir.Quad{lit(testGraph, "http://s/1", pName, "Jan")},
		Inserts: []ir.Quad{lit(testGraph, "http://s/1", pName, "Jan")},
	}))

	pairs, err := c.Triples(ctx, testGraph, "http://s/1")
	require.NoError(t, err)
	require.Len(t, pairs, 1, "insert applied after delete")
	assert.Equal(t, "Jan", pairs[0].Object.Value)
}

func TestUpdate_InvalidQuadRollsBackNothing(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	err := c.Update(ctx, Update{Inserts: []ir.Quad{
		lit(testGraph, "http://s/1", pName, "Jan"),
		{Graph: testGraph, Subject: "http://s/2"},
	}})
	require.Error(t, err)

	quads, err := c.Graph(ctx, testGraph)
	require.NoError(t, err)
	assert.Empty(t, quads)
}

func TestUpdate_NormalisesLiterals(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	require.NoError(t, c.Insert(ctx, ir.Quad{Graph: testGraph, Subject: "http://s/1", Predicate: pName, Object: ir.Literal("Bel\u00e9n")}))
	require.NoError(t, c.Insert(ctx, ir.Quad{Graph: testGraph, Subject: "http://s/1", Predicate: pName, Object: ir.Literal("Bele\u0301n")}))

	pairs, err := c.Triples(ctx, testGraph, "http://s/1")
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestTriples_RoundTripsTerms(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	terms := []ir.Term{
		ir.IRI("http://o/1"),
		ir.Literal("plain"),
		ir.LangLiteral("Schepen", "nl"),
		ir.TypedLiteral("2024-06-01T00:00:00.000Z", ir.XSDDateTime),
	}
	for _, term := range terms {
		require.NoError(t, c.Insert(ctx, ir.NewQuad(testGraph, "http://s/1", pKnows, term)))
	}

	pairs, err := c.Triples(ctx, testGraph, "http://s/1")
	require.NoError(t, err)
	require.Len(t, pairs, len(terms))
	for _, term := range terms {
		found := false
		for _, p := range pairs {
			if p.Object.Equal(term) {
				found = true
			}
		}
		assert.True(t, found, "term %s not returned", term)
	}
}

func TestDeleteSubjects(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	require.NoError(t, c.Insert(ctx,
		lit(testGraph, "http://s/1", pName, "a"),
		lit(testGraph, "http://s/1", pKnows, "b"),
		lit(testGraph, "http://s/2", pName, "c"),
		lit(otherGraph, "http://s/1", pName, "d"),
	))
	require.NoError(t, c.DeleteSubjects(ctx, testGraph, []string{"http://s/1"}))

	quads, err := c.Graph(ctx, testGraph)
	require.NoError(t, err)
	require.Len(t, quads, 1)
	assert.Equal(t, "http://s/2", quads[0].Subject)

	other, err := c.Graph(ctx, otherGraph)
	require.NoError(t, err)
	assert.Len(t, other, 1, "other graphs untouched")
}

func TestSelect_JoinAcrossPatterns(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	require.NoError(t, c.Insert(ctx,
		ref(testGraph, "http://s/1", pKnows, "http://s/2"),
		ref(testGraph, "http://s/1", pKnows, "http://s/3"),
		lit(otherGraph, "http://s/2", pName, "Two"),
	))

	got, err := c.Select(ctx, queryir.Query{
		Select: []queryir.Var{"friend", "name", "g"},
		Where: []queryir.Pattern{
			{Graph: queryir.IRI(testGraph), Subject: queryir.IRI("http://s/1"), Predicate: queryir.IRI(pKnows), Object: queryir.V("friend")},
			{Graph: queryir.V("g"), Subject: queryir.V("friend"), Predicate: queryir.IRI(pName), Object: queryir.V("name")},
		},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "http://s/2", got[0].IRI("friend"))
	assert.Equal(t, "Two", got[0]["name"].Value)
	assert.Equal(t, otherGraph, got[0].IRI("g"))
}

func TestSelect_ExcludeGraphs(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	require.NoError(t, c.Insert(ctx,
		lit(testGraph, "http://s/1", pName, "a"),
		lit(otherGraph, "http://s/1", pName, "b"),
	))

	got, err := c.Select(ctx, queryir.Query{
		Select:        []queryir.Var{"name"},
		Where:         []queryir.Pattern{{Graph: queryir.V("g"), Subject: queryir.IRI("http://s/1"), Predicate: queryir.IRI(pName), Object: queryir.V("name")}},
		ExcludeGraphs: []string{testGraph},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0]["name"].Value)
}

func TestAsk(t *testing.T) {
	s := createTestStore(t)
	c := s.Sudo()
	ctx := context.Background()

	q := queryir.Query{Where: []queryir.Pattern{{
		Graph: queryir.IRI(testGraph), Subject: queryir.IRI("http://s/1"),
		Predicate: queryir.IRI(pName), Object: queryir.V("n"),
	}}}

	ok, err := c.Ask(ctx, q)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Insert(ctx, lit(testGraph, "http://s/1", pName, "a")))
	ok, err = c.Ask(ctx, q)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScopedClient(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Sudo().Insert(ctx,
		lit(testGraph, "http://s/1", pName, "a"),
		lit(otherGraph, "http://s/1", pName, "b"),
	))

	scoped := s.As(testGraph)
	assert.False(t, scoped.Elevated())
	assert.True(t, s.Sudo().Elevated())

	err := scoped.Insert(ctx, lit(otherGraph, "http://s/2", pName, "c"))
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, scoped.DeleteSubjects(ctx, otherGraph, []string{"http://s/1"}), ErrForbidden)

	got, err := scoped.Select(ctx, queryir.Query{
		Select: []queryir.Var{"name"},
		Where:  []queryir.Pattern{{Graph: queryir.V("g"), Subject: queryir.IRI("http://s/1"), Predicate: queryir.IRI(pName), Object: queryir.V("name")}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0]["name"].Value)

	hidden, err := scoped.Graph(ctx, otherGraph)
	require.NoError(t, err)
	assert.Empty(t, hidden)

	graphs, err := scoped.Graphs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testGraph}, graphs)
}
