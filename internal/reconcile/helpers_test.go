package reconcile

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/notify"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/testutil"
	"github.com/roach88/mandaatsync/internal/vocab"
)

const (
	staging = vocab.DefaultStagingGraph
	public  = "http://mu.semte.ch/graphs/public"
	area    = "http://mu.semte.ch/graphs/organizations/o1/LoketLB-mandaatGebruiker"

	post     = "http://data.lblod.info/id/mandaten/schepen-1"
	person   = "http://data.lblod.info/id/personen/p1"
	decision = "http://data.lblod.info/id/besluiten/b1"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) bySeverity(s notify.Severity) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.sent {
		if n.Severity == s {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	t        *testing.T
	st       *store.Store
	engine   *Engine
	notifier *recordingNotifier
	clock    *ir.FixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		st:       testutil.NewStore(t),
		notifier: &recordingNotifier{},
		clock:    testutil.Clock(t, "2024-07-01T00:00:00Z"),
	}
	eng, err := New(f.st.Sudo(), f.notifier, Options{Clock: f.clock})
	require.NoError(t, err)
	f.engine = eng
	f.insert(organizationChain(public)...)
	return f
}

func (f *fixture) insert(quads ...ir.Quad) {
	f.t.Helper()
	require.NoError(f.t, f.st.Sudo().Insert(context.Background(), quads...))
}

func (f *fixture) reconcile(ref string) Result {
	f.t.Helper()
	res, err := f.engine.Reconcile(context.Background(), ref)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) triples(graph, subject string) []ir.Pair {
	f.t.Helper()
	pairs, err := f.st.Sudo().Triples(context.Background(), graph, subject)
	require.NoError(f.t, err)
	return pairs
}

func organizationChain(graph string) []ir.Quad {
	return []ir.Quad{
		ir.NewQuad(graph, "http://data/bot1", vocab.HasPost, ir.IRI(post)),
		ir.NewQuad(graph, "http://data/bot1", vocab.TimeSpecialisationOf, ir.IRI("http://data/bo1")),
		ir.NewQuad(graph, "http://data/bo1", vocab.Governs, ir.IRI("http://data/org1")),
		ir.NewQuad(graph, "http://data/org1", vocab.UUID, ir.Literal("o1")),
	}
}

// record returns the facts of a mandate record. An empty start or end is
// omitted.
func record(graph, ref, start, end string) []ir.Quad {
	qs := []ir.Quad{
		ir.NewQuad(graph, ref, vocab.Type, ir.IRI(vocab.Mandataris)),
		ir.NewQuad(graph, ref, vocab.Holds, ir.IRI(post)),
		ir.NewQuad(graph, ref, vocab.AliasOf, ir.IRI(person)),
		ir.NewQuad(graph, ref, vocab.Status, ir.IRI("http://data/status/effectief")),
	}
	if start != "" {
		qs = append(qs, ir.NewQuad(graph, ref, vocab.Start, ir.TypedLiteral(start, ir.XSDDateTime)))
	}
	if end != "" {
		qs = append(qs, ir.NewQuad(graph, ref, vocab.End, ir.TypedLiteral(end, ir.XSDDateTime)))
	}
	return qs
}

// stage stages a record and a decision ratifying it.
func (f *fixture) stage(ref, start string) {
	f.t.Helper()
	f.insert(record(staging, ref, start, "")...)
	f.insert(ir.NewQuad(staging, decision, vocab.RatifiesAppointment, ir.IRI(ref)))
}
