package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/fixture"
	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/notify"
	"github.com/roach88/mandaatsync/internal/queryir"
	"github.com/roach88/mandaatsync/internal/reconcile"
	"github.com/roach88/mandaatsync/internal/scheduler"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/vocab"
	"github.com/roach88/mandaatsync/internal/workqueue"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	// Outcomes lists "<ref> <outcome>" for every reconciliation, in order.
	Outcomes []string `json:"outcomes"`

	// Snapshot renders the golden graphs.
	Snapshot string `json:"snapshot,omitempty"`
}

func (r *Result) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness wires the pipeline against one store for a scenario.
type Harness struct {
	client    *store.Client
	clock     *ir.FixedClock
	doc       *fixture.Document
	engine    *reconcile.Engine
	queue     *workqueue.Queue
	scheduler *scheduler.Scheduler
	log       *logrus.Entry
}

// Run executes a scenario in a temporary database.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	return RunWithLogger(ctx, sc, nil)
}

// RunWithLogger is Run with pipeline logging sent to log.
func RunWithLogger(ctx context.Context, sc *Scenario, log *logrus.Entry) (*Result, error) {
	dir, err := os.MkdirTemp("", "mandaatsync-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	h, err := New(st, sc, log)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx, sc)
}

// New wires the pipeline for sc over st with a fixed clock and sequence ids.
func New(st *store.Store, sc *Scenario, log *logrus.Entry) (*Harness, error) {
	now, err := ir.ParseTime(sc.Now)
	if err != nil {
		return nil, fmt.Errorf("now: %w", err)
	}
	window := 5 * time.Minute
	if sc.BufferWindow != "" {
		if window, err = time.ParseDuration(sc.BufferWindow); err != nil {
			return nil, fmt.Errorf("buffer_window: %w", err)
		}
	}

	h := &Harness{
		client: st.Sudo(),
		clock:  ir.NewFixedClock(now),
		doc:    sc.Fixture(),
		log:    log,
	}
	sink := notify.NewSink(h.client, notify.Options{
		Clock:  h.clock,
		IDs:    ir.NewSequenceGenerator("notification"),
		Logger: log,
	})
	if h.engine, err = reconcile.New(h.client, sink, reconcile.Options{Clock: h.clock, Logger: log}); err != nil {
		return nil, err
	}
	if h.queue, err = workqueue.New(h.client, workqueue.Options{
		Clock:  h.clock,
		IDs:    ir.NewSequenceGenerator("entry"),
		Logger: log,
	}); err != nil {
		return nil, err
	}
	if h.scheduler, err = scheduler.New(h.queue, h.engine, sink, scheduler.Options{
		BufferWindow: window,
		BatchSize:    sc.BatchSize,
		Clock:        h.clock,
		Logger:       log,
	}); err != nil {
		return nil, err
	}
	return h, nil
}

// Run loads the initial facts, executes the steps and evaluates assertions.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	quads, err := h.doc.Quads()
	if err != nil {
		return nil, err
	}
	if err := h.client.Insert(ctx, quads...); err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}

	res := &Result{Pass: true, Outcomes: []string{}}
	for i, step := range sc.Steps {
		if err := h.step(ctx, i, step, res); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for i, a := range sc.Assertions {
		if err := h.assert(ctx, i, a, res); err != nil {
			return nil, fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	if len(sc.Golden) > 0 {
		graphs := make([]string, len(sc.Golden))
		for i, g := range sc.Golden {
			if graphs[i], err = h.doc.Expand(g); err != nil {
				return nil, fmt.Errorf("golden[%d]: %w", i, err)
			}
		}
		if res.Snapshot, err = Snapshot(ctx, h.client, graphs...); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (h *Harness) step(ctx context.Context, i int, step Step, res *Result) error {
	var outcomes []string
	switch {
	case len(step.Reconcile) > 0:
		refs, err := h.expandAll(step.Reconcile)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			r, err := h.engine.Reconcile(ctx, ref)
			if err != nil {
				res.addError("steps[%d]: reconcile %s: %v", i, ref, err)
				outcomes = append(outcomes, "error")
				continue
			}
			outcomes = append(outcomes, string(r.Outcome))
			res.Outcomes = append(res.Outcomes, ref+" "+string(r.Outcome))
		}

	case len(step.Enqueue) > 0:
		refs, err := h.expandAll(step.Enqueue)
		if err != nil {
			return err
		}
		if _, err := h.queue.Enqueue(ctx, refs); err != nil {
			return err
		}

	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)

	case step.Tick:
		report, err := h.scheduler.Tick(ctx)
		if err != nil {
			return err
		}
		for _, item := range report.Items {
			outcome := string(item.Outcome)
			if item.Err != nil {
				outcome = "error"
			}
			outcomes = append(outcomes, outcome)
			res.Outcomes = append(res.Outcomes, item.Entry.Ref+" "+outcome)
		}
	}

	if len(step.Expect) > 0 && !slices.Equal(step.Expect, outcomes) {
		res.addError("steps[%d]: expected outcomes %v, got %v", i, step.Expect, outcomes)
	}
	return nil
}

func (h *Harness) expandAll(names []string) ([]string, error) {
	out := make([]string, len(names))
	for i, n := range names {
		iri, err := h.doc.Expand(n)
		if err != nil {
			return nil, err
		}
		out[i] = iri
	}
	return out, nil
}

func (h *Harness) assert(ctx context.Context, i int, a Assertion, res *Result) error {
	switch a.Type {
	case AssertPresent, AssertAbsent:
		q, err := h.doc.Quad(a.Graph, *a.Fact)
		if err != nil {
			return err
		}
		found, err := h.client.Ask(ctx, queryir.Query{Where: []queryir.Pattern{{
			Graph:     queryir.IRI(q.Graph),
			Subject:   queryir.IRI(q.Subject),
			Predicate: queryir.IRI(q.Predicate),
			Object:    queryir.Term(q.Object),
		}}})
		if err != nil {
			return err
		}
		if found != (a.Type == AssertPresent) {
			res.addError("assertions[%d]: expected %s to be %s", i, q, a.Type)
		}

	case AssertNotification:
		graph, err := h.doc.Expand(a.Graph)
		if err != nil {
			return err
		}
		ns, err := Notifications(ctx, h.client, graph)
		if err != nil {
			return err
		}
		n := 0
		for _, s := range ns {
			if s.Severity == a.Severity && (a.Title == "" || s.Title == a.Title) {
				n++
			}
		}
		switch {
		case a.Count == nil && n == 0:
			res.addError("assertions[%d]: no %s notification %q in %s", i, a.Severity, a.Title, graph)
		case a.Count != nil && n != *a.Count:
			res.addError("assertions[%d]: expected %d %s notifications %q in %s, got %d", i, *a.Count, a.Severity, a.Title, graph, n)
		}

	case AssertQueueLength:
		n, err := h.queue.Len(ctx)
		if err != nil {
			return err
		}
		if n != *a.Count {
			res.addError("assertions[%d]: expected queue length %d, got %d", i, *a.Count, n)
		}
	}
	return nil
}

// NotificationSummary is a notification without its generated identifiers.
type NotificationSummary struct {
	Severity string
	Title    string
	Links    []string // "<type> <ref>", sorted
}

func (n NotificationSummary) String() string {
	return fmt.Sprintf("! %s %q -> %s", n.Severity, n.Title, strings.Join(n.Links, ", "))
}

// Notifications reads the notifications stored in graph, sorted by their
// rendered form.
func Notifications(ctx context.Context, c *store.Client, graph string) ([]NotificationSummary, error) {
	rows, err := c.Select(ctx, queryir.Query{
		Select: []queryir.Var{"n"},
		Where: []queryir.Pattern{{
			Graph:     queryir.IRI(graph),
			Subject:   queryir.V("n"),
			Predicate: queryir.IRI(vocab.Type),
			Object:    queryir.IRI(vocab.SystemNotification),
		}},
	})
	if err != nil {
		return nil, err
	}

	out := make([]NotificationSummary, 0, len(rows))
	for _, row := range rows {
		pairs, err := c.Triples(ctx, graph, row.IRI("n"))
		if err != nil {
			return nil, err
		}
		var s NotificationSummary
		if t, ok := ir.First(pairs, vocab.NotificationType); ok {
			s.Severity = t.Value
		}
		if t, ok := ir.First(pairs, vocab.Subject); ok {
			s.Title = t.Value
		}
		s.Links = []string{}
		for _, l := range ir.Values(pairs, vocab.NotificationLink) {
			lp, err := c.Triples(ctx, graph, l.Value)
			if err != nil {
				return nil, err
			}
			typ, _ := ir.First(lp, vocab.LinkedType)
			to, _ := ir.First(lp, vocab.LinkedTo)
			s.Links = append(s.Links, typ.Value+" "+to.String())
		}
		slices.Sort(s.Links)
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b NotificationSummary) int {
		return strings.Compare(a.String(), b.String())
	})
	return out, nil
}

// Snapshot renders graphs for golden comparison: one section per graph with
// its facts in canonical N-Quads order, notifications summarized at the end.
func Snapshot(ctx context.Context, c *store.Client, graphs ...string) (string, error) {
	var b strings.Builder
	for i, g := range graphs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s\n", g)

		quads, err := c.Graph(ctx, g)
		if err != nil {
			return "", err
		}
		ir.SortQuads(quads)
		notes := make(map[string]bool)
		for _, q := range quads {
			if q.Predicate == vocab.Type && q.Object.IsIRI() &&
				(q.Object.Value == vocab.SystemNotification || q.Object.Value == vocab.SystemNotificationLink) {
				notes[q.Subject] = true
			}
		}
		for _, q := range quads {
			if !notes[q.Subject] {
				fmt.Fprintf(&b, "%s .\n", q)
			}
		}

		ns, err := Notifications(ctx, c, g)
		if err != nil {
			return "", err
		}
		for _, n := range ns {
			fmt.Fprintf(&b, "%s\n", n)
		}
	}
	return b.String(), nil
}
