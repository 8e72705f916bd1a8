// Package reconcile decides, for one mandate reference, whether to create,
// update or leave the authoritative record in its organization graph.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/logging"
	"github.com/roach88/mandaatsync/internal/metrics"
	"github.com/roach88/mandaatsync/internal/notify"
	"github.com/roach88/mandaatsync/internal/queryir"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/vocab"
)

// Store is the fact store capability the engine needs. Callers pass an
// elevated client.
type Store interface {
	Select(ctx context.Context, q queryir.Query) ([]store.Binding, error)
	Ask(ctx context.Context, q queryir.Query) (bool, error)
	Triples(ctx context.Context, graph, subject string) ([]ir.Pair, error)
	Update(ctx context.Context, u store.Update) error
}

// Outcome is what one reconciliation did.
type Outcome string

const (
	Created       Outcome = "created"
	Updated       Outcome = "updated"
	Unchanged     Outcome = "unchanged"
	MissingPost   Outcome = "missing-post"
	MissingArea   Outcome = "missing-area"
	MissingPerson Outcome = "missing-person"
)

// Result describes a completed reconciliation.
type Result struct {
	Ref     string
	Outcome Outcome
	Area    string

	// Terminated lists predecessors whose end was set to the new start.
	Terminated []string
	// Overlapping lists active records left untouched because the case was
	// ambiguous.
	Overlapping []string
	// Changed lists the predicates rewritten by an update.
	Changed []string
}

// Options configures an Engine.
type Options struct {
	StagingGraph string
	AreaTemplate string
	Clock        ir.Clock
	Logger       *logrus.Entry
}

func (o *Options) setDefaults() {
	if o.StagingGraph == "" {
		o.StagingGraph = vocab.DefaultStagingGraph
	}
	if o.AreaTemplate == "" {
		o.AreaTemplate = vocab.DefaultAreaTemplate
	}
	if o.Clock == nil {
		o.Clock = ir.SystemClock{}
	}
	o.Logger = logging.OrNop(o.Logger)
}

// Engine reconciles staged mandate facts into organization graphs.
type Engine struct {
	st       Store
	notifier notify.Notifier
	opts     Options
}

// New creates an Engine. Store and notifier are required.
func New(st Store, notifier notify.Notifier, opts Options) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if notifier == nil {
		return nil, fmt.Errorf("%w: notifier is required", ErrInvalidConfig)
	}
	if !strings.Contains(opts.AreaTemplate, "{uuid}") && opts.AreaTemplate != "" {
		return nil, fmt.Errorf("%w: area template %q lacks {uuid}", ErrInvalidConfig, opts.AreaTemplate)
	}
	opts.setDefaults()
	return &Engine{st: st, notifier: notifier, opts: opts}, nil
}

// StagingGraph returns the configured staging graph.
func (e *Engine) StagingGraph() string {
	return e.opts.StagingGraph
}

// Reconcile processes one mandate reference. It is safe to re-run: a second
// pass over unchanged staging data writes nothing.
func (e *Engine) Reconcile(ctx context.Context, ref string) (Result, error) {
	start := time.Now()
	res, err := e.reconcile(ctx, ref)

	outcome := string(res.Outcome)
	if err != nil {
		outcome = "error"
	}
	m := metrics.Get()
	m.Items.WithLabelValues(outcome).Inc()
	m.ItemLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return res, err
}

func (e *Engine) reconcile(ctx context.Context, ref string) (Result, error) {
	log := e.opts.Logger.WithField("mandataris", ref)
	res := Result{Ref: ref}

	post, err := e.stagedPost(ctx, ref)
	if err != nil {
		return res, err
	}
	if post == "" {
		log.Info("reconcile: no post staged yet, skipping")
		res.Outcome = MissingPost
		return res, nil
	}

	area, err := e.areaOfPost(ctx, ref, post)
	if err != nil {
		return res, err
	}
	if area == "" {
		log.WithField("post", post).Info("reconcile: owning organization not resolvable, skipping")
		res.Outcome = MissingArea
		return res, nil
	}
	res.Area = area
	log = log.WithField("graph", area)

	staged, err := e.st.Triples(ctx, e.opts.StagingGraph, ref)
	if err != nil {
		return res, readErr(ref, "read staged facts", err)
	}
	decisions, err := e.decisions(ctx, ref)
	if err != nil {
		return res, err
	}

	exists, err := e.st.Ask(ctx, queryir.Query{Where: []queryir.Pattern{{
		Graph:     queryir.IRI(area),
		Subject:   queryir.IRI(ref),
		Predicate: queryir.IRI(vocab.Type),
		Object:    queryir.IRI(vocab.Mandataris),
	}}})
	if err != nil {
		return res, readErr(ref, "check existing record", err)
	}

	if exists {
		return e.update(ctx, log, res, staged, decisions)
	}
	return e.create(ctx, log, res, post, staged, decisions)
}

// stagedPost returns the post ref holds according to staging, or "".
func (e *Engine) stagedPost(ctx context.Context, ref string) (string, error) {
	rows, err := e.st.Select(ctx, queryir.Query{
		Select: []queryir.Var{"post"},
		Where: []queryir.Pattern{{
			Graph:     queryir.IRI(e.opts.StagingGraph),
			Subject:   queryir.IRI(ref),
			Predicate: queryir.IRI(vocab.Holds),
			Object:    queryir.V("post"),
		}},
		Limit: 1,
	})
	if err != nil {
		return "", readErr(ref, "resolve post", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].IRI("post"), nil
}

// areaOfPost follows post <- org:hasPost time-sliced organ -> organ ->
// organization -> mu:uuid outside staging and expands the area template.
func (e *Engine) areaOfPost(ctx context.Context, ref, post string) (string, error) {
	rows, err := e.st.Select(ctx, queryir.Query{
		Select: []queryir.Var{"uuid"},
		Where: []queryir.Pattern{
			{Graph: queryir.V("g1"), Subject: queryir.V("bot"), Predicate: queryir.IRI(vocab.HasPost), Object: queryir.IRI(post)},
			{Graph: queryir.V("g2"), Subject: queryir.V("bot"), Predicate: queryir.IRI(vocab.TimeSpecialisationOf), Object: queryir.V("bo")},
			{Graph: queryir.V("g3"), Subject: queryir.V("bo"), Predicate: queryir.IRI(vocab.Governs), Object: queryir.V("org")},
			{Graph: queryir.V("g4"), Subject: queryir.V("org"), Predicate: queryir.IRI(vocab.UUID), Object: queryir.V("uuid")},
		},
		ExcludeGraphs: []string{e.opts.StagingGraph},
		Distinct:      true,
	})
	if err != nil {
		return "", readErr(ref, "resolve owning organization", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	if len(rows) > 1 {
		e.opts.Logger.WithFields(logrus.Fields{"mandataris": ref, "post": post, "candidates": len(rows)}).
			Warn("reconcile: post belongs to several organizations, using the first")
	}
	id := rows[0]["uuid"].Value
	if id == "" {
		return "", nil
	}
	return vocab.AreaFor(e.opts.AreaTemplate, id), nil
}

// OwningArea resolves the organization graph of ref through its staged post.
// ok is false when the post or organization is not resolvable.
func (e *Engine) OwningArea(ctx context.Context, ref string) (area string, ok bool, err error) {
	post, err := e.stagedPost(ctx, ref)
	if err != nil || post == "" {
		return "", false, err
	}
	area, err = e.areaOfPost(ctx, ref, post)
	if err != nil || area == "" {
		return "", false, err
	}
	return area, true, nil
}

// decisions returns the staged decisions ratifying ref.
func (e *Engine) decisions(ctx context.Context, ref string) ([]string, error) {
	rows, err := e.st.Select(ctx, queryir.Query{
		Select: []queryir.Var{"d", "p"},
		Where: []queryir.Pattern{{
			Graph:     queryir.IRI(e.opts.StagingGraph),
			Subject:   queryir.V("d"),
			Predicate: queryir.V("p"),
			Object:    queryir.IRI(ref),
		}},
		Distinct: true,
	})
	if err != nil {
		return nil, readErr(ref, "read decisions", err)
	}
	var out []string
	seen := make(map[string]bool)
	for _, row := range rows {
		d := row.IRI("d")
		if vocab.IsRatification(row.IRI("p")) && !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func links(ref string, decisions []string, others ...string) []notify.Link {
	out := []notify.Link{{Type: vocab.LinkMandataris, Ref: ref}}
	for _, o := range others {
		out = append(out, notify.Link{Type: vocab.LinkMandataris, Ref: o})
	}
	for _, d := range decisions {
		out = append(out, notify.Link{Type: vocab.LinkDecision, Ref: d})
	}
	return out
}
