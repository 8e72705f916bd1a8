package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/notify"
	"github.com/roach88/mandaatsync/internal/queryir"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/vocab"
)

// activeRecord is a record of the same person and post that has not ended.
type activeRecord struct {
	ref   string
	start time.Time // zero when unknown
	ends  []ir.Term
}

func (e *Engine) create(ctx context.Context, log *logrus.Entry, res Result, post string, staged []ir.Pair, decisions []string) (Result, error) {
	person, ok := ir.First(staged, vocab.AliasOf)
	if !ok || !person.IsIRI() {
		log.Warn("reconcile: no person staged, record not created")
		res.Outcome = MissingPerson
		e.notifier.Notify(ctx, notify.Notification{
			Title:       "Persoon niet gevonden",
			Description: fmt.Sprintf("Voor mandataris %s werd geen persoon gevonden in het besluit. De mandataris werd niet aangemaakt.", res.Ref),
			Severity:    notify.Warning,
			Graph:       res.Area,
			Links:       links(res.Ref, decisions),
		})
		return res, nil
	}

	active, err := e.activeRecords(ctx, res, post, person.Value)
	if err != nil {
		return res, err
	}

	var u store.Update
	newStartTerm, hasStart := ir.First(staged, vocab.Start)
	var newStart time.Time
	if hasStart {
		if ts, err := newStartTerm.Time(); err == nil {
			newStart = ts
		} else {
			hasStart = false
		}
	}

	switch {
	case len(active) == 0:
	case len(active) == 1 && hasStart && active[0].start.Before(newStart):
		pred := active[0]
		for _, end := range pred.ends {
			u.Deletes = append(u.Deletes, ir.NewQuad(res.Area, pred.ref, vocab.End, end))
		}
		u.Inserts = append(u.Inserts, ir.NewQuad(res.Area, pred.ref, vocab.End, newStartTerm))
		res.Terminated = []string{pred.ref}
	default:
		for _, a := range active {
			res.Overlapping = append(res.Overlapping, a.ref)
		}
	}

	for _, p := range staged {
		u.Inserts = append(u.Inserts, p.In(res.Area, res.Ref))
	}
	if err := e.st.Update(ctx, u); err != nil {
		return res, writeErr(res.Ref, "create record", err)
	}
	res.Outcome = Created
	log.WithFields(logrus.Fields{
		"terminated":  len(res.Terminated),
		"overlapping": len(res.Overlapping),
	}).Info("reconcile: record created")

	desc := fmt.Sprintf("Mandataris %s werd aangemaakt op basis van een bekrachtigd besluit.", res.Ref)
	if len(res.Terminated) > 0 {
		desc += fmt.Sprintf(" Mandataris %s werd beëindigd op %s.", res.Terminated[0], newStartTerm.Value)
	}
	e.notifier.Notify(ctx, notify.Notification{
		Title:       "Mandataris aangemaakt",
		Description: desc,
		Severity:    notify.Info,
		Graph:       res.Area,
		Links:       links(res.Ref, decisions, res.Terminated...),
	})

	if len(res.Overlapping) > 0 {
		log.WithField("overlapping", res.Overlapping).Warn("reconcile: overlapping active records left untouched")
		e.notifier.Notify(ctx, notify.Notification{
			Title: "Overlappende mandatarissen",
			Description: fmt.Sprintf("Mandataris %s overlapt met actieve mandatarissen voor dezelfde persoon en hetzelfde mandaat (%s). Geen enkele werd automatisch beëindigd.",
				res.Ref, strings.Join(res.Overlapping, ", ")),
			Severity: notify.Warning,
			Graph:    res.Area,
			Links:    links(res.Ref, decisions, res.Overlapping...),
		})
	}
	return res, nil
}

// activeRecords returns the records in the owning graph for the same person
// and post that have no end or an end after now, excluding res.Ref.
func (e *Engine) activeRecords(ctx context.Context, res Result, post, person string) ([]activeRecord, error) {
	area := queryir.IRI(res.Area)
	rows, err := e.st.Select(ctx, queryir.Query{
		Select: []queryir.Var{"m"},
		Where: []queryir.Pattern{
			{Graph: area, Subject: queryir.V("m"), Predicate: queryir.IRI(vocab.Type), Object: queryir.IRI(vocab.Mandataris)},
			{Graph: area, Subject: queryir.V("m"), Predicate: queryir.IRI(vocab.Holds), Object: queryir.IRI(post)},
			{Graph: area, Subject: queryir.V("m"), Predicate: queryir.IRI(vocab.AliasOf), Object: queryir.IRI(person)},
		},
		Distinct: true,
	})
	if err != nil {
		return nil, readErr(res.Ref, "find active records", err)
	}

	now := e.opts.Clock.Now()
	var out []activeRecord
	for _, row := range rows {
		ref := row.IRI("m")
		if ref == res.Ref {
			continue
		}
		pairs, err := e.st.Triples(ctx, res.Area, ref)
		if err != nil {
			return nil, readErr(res.Ref, "read active record", err)
		}
		rec := activeRecord{ref: ref, ends: ir.Values(pairs, vocab.End)}
		if isEnded(rec.ends, now) {
			continue
		}
		if s, ok := ir.First(pairs, vocab.Start); ok {
			if ts, err := s.Time(); err == nil {
				rec.start = ts
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// isEnded reports whether any end value lies at or before now.
// Unparseable ends count as not ended.
func isEnded(ends []ir.Term, now time.Time) bool {
	for _, end := range ends {
		ts, err := end.Time()
		if err == nil && !ts.After(now) {
			return true
		}
	}
	return false
}
