// Package workqueue implements the durable work queue of mandate references
// awaiting reconciliation. Entries are facts in a dedicated queue graph:
//
//	<instance> ext:queuedMandataris <mandataris> ;
//	           ext:queueTime "…"^^xsd:dateTime .
//
// Entries survive restarts and are removed only after they were attempted.
package workqueue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/logging"
	"github.com/roach88/mandaatsync/internal/queryir"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/vocab"
)

// ErrInvalidConfig is returned by New for unusable options.
var ErrInvalidConfig = errors.New("invalid work queue configuration")

// Store is the part of the fact store client the queue needs.
type Store interface {
	Select(ctx context.Context, q queryir.Query) ([]store.Binding, error)
	Update(ctx context.Context, u store.Update) error
	DeleteSubjects(ctx context.Context, graph string, subjects []string) error
}

// Entry is one pending reconciliation target.
type Entry struct {
	Instance string
	Ref      string
	QueuedAt time.Time
}

// Options configures a Queue.
type Options struct {
	Graph  string
	Clock  ir.Clock
	IDs    ir.IDGenerator
	Logger *logrus.Entry
}

func (o *Options) setDefaults() {
	if o.Graph == "" {
		o.Graph = vocab.DefaultQueueGraph
	}
	if o.Clock == nil {
		o.Clock = ir.SystemClock{}
	}
	if o.IDs == nil {
		o.IDs = ir.UUIDv7Generator{}
	}
	o.Logger = logging.OrNop(o.Logger)
}

// Queue is the store-resident work queue.
type Queue struct {
	st   Store
	opts Options
}

// New creates a Queue over st.
func New(st Store, opts Options) (*Queue, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	opts.setDefaults()
	return &Queue{st: st, opts: opts}, nil
}

// Graph returns the queue graph.
func (q *Queue) Graph() string {
	return q.opts.Graph
}

// Enqueue writes one entry per distinct non-empty ref, stamped with the
// current time, in a single update. Duplicates of refs already queued are
// harmless.
func (q *Queue) Enqueue(ctx context.Context, refs []string) ([]Entry, error) {
	now := stampTime(q.opts.Clock.Now().UTC())
	seen := make(map[string]bool, len(refs))

	var entries []Entry
	var inserts []ir.Quad
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			continue
		}
		seen[ref] = true

		e := Entry{
			Instance: vocab.QueueInstanceBase + q.opts.IDs.Generate(),
			Ref:      ref,
			QueuedAt: now,
		}
		entries = append(entries, e)
		inserts = append(inserts,
			ir.NewQuad(q.opts.Graph, e.Instance, vocab.QueuedMandataris, ir.IRI(ref)),
			ir.NewQuad(q.opts.Graph, e.Instance, vocab.QueueTime, ir.DateTime(now)),
		)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if err := q.st.Update(ctx, store.Update{Inserts: inserts}); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	q.opts.Logger.WithField("count", len(entries)).Debug("workqueue: enqueued")
	return entries, nil
}

// stampTime rounds t up to the millisecond resolution of stored queue times,
// so an entry never reads back older than it is.
func stampTime(t time.Time) time.Time {
	r := t.Truncate(time.Millisecond)
	if r.Before(t) {
		r = r.Add(time.Millisecond)
	}
	return r
}

// All returns every entry ordered by queue time, then instance.
// Entries whose queue time cannot be parsed sort first with a zero time.
func (q *Queue) All(ctx context.Context) ([]Entry, error) {
	rows, err := q.st.Select(ctx, queryir.Query{
		Select: []queryir.Var{"instance", "ref", "time"},
		Where: []queryir.Pattern{
			{Graph: queryir.IRI(q.opts.Graph), Subject: queryir.V("instance"), Predicate: queryir.IRI(vocab.QueuedMandataris), Object: queryir.V("ref")},
			{Graph: queryir.IRI(q.opts.Graph), Subject: queryir.V("instance"), Predicate: queryir.IRI(vocab.QueueTime), Object: queryir.V("time")},
		},
		Distinct: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		e := Entry{Instance: row.IRI("instance"), Ref: row["ref"].Value}
		ts, err := row["time"].Time()
		if err != nil {
			q.opts.Logger.WithError(err).WithField("instance", e.Instance).Warn("workqueue: unreadable queue time")
		} else {
			e.QueuedAt = ts
		}
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Instance, b.Instance)
	})
	return entries, nil
}

// Due returns up to limit entries queued strictly before cutoff.
// A limit of zero or less returns every due entry.
func (q *Queue) Due(ctx context.Context, cutoff time.Time, limit int) ([]Entry, error) {
	all, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	var due []Entry
	for _, e := range all {
		if !e.QueuedAt.Before(cutoff) {
			continue
		}
		due = append(due, e)
		if limit > 0 && len(due) == limit {
			break
		}
	}
	return due, nil
}

// Remove deletes every fact of the given entries in one operation.
func (q *Queue) Remove(ctx context.Context, entries []Entry) error {
	subjects := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !seen[e.Instance] {
			seen[e.Instance] = true
			subjects = append(subjects, e.Instance)
		}
	}
	if err := q.st.DeleteSubjects(ctx, q.opts.Graph, subjects); err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}
	return nil
}

// Len returns the number of queued entries.
func (q *Queue) Len(ctx context.Context) (int, error) {
	all, err := q.All(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
