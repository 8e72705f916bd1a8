package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/roach88/mandaatsync/internal/ir"
	"github.com/roach88/mandaatsync/internal/notify"
	"github.com/roach88/mandaatsync/internal/store"
	"github.com/roach88/mandaatsync/internal/vocab"
)

// Diff computes the targeted upsert from current to staged facts of one
// subject. For every predicate present in staged, current values that are not
// staged are deleted and staged values that are not current are inserted.
// Predicates absent from staged are left alone.
//
// The returned predicates are the ones that change, in staged order.
func Diff(graph, subject string, staged, current []ir.Pair) (store.Update, []string) {
	stagedKeys := make(map[string]bool, len(staged))
	stagedPreds := make(map[string]bool)
	for _, p := range staged {
		stagedKeys[p.Key()] = true
		stagedPreds[p.Predicate] = true
	}
	currentKeys := make(map[string]bool, len(current))
	for _, p := range current {
		currentKeys[p.Key()] = true
	}

	var u store.Update
	changed := make(map[string]bool)
	var order []string
	mark := func(pred string) {
		if !changed[pred] {
			changed[pred] = true
			order = append(order, pred)
		}
	}

	for _, p := range staged {
		if !currentKeys[p.Key()] {
			u.Inserts = append(u.Inserts, p.In(graph, subject))
			currentKeys[p.Key()] = true
			mark(p.Predicate)
		}
	}
	for _, p := range current {
		if stagedPreds[p.Predicate] && !stagedKeys[p.Key()] {
			u.Deletes = append(u.Deletes, p.In(graph, subject))
			mark(p.Predicate)
		}
	}
	return u, order
}

func (e *Engine) update(ctx context.Context, log *logrus.Entry, res Result, staged []ir.Pair, decisions []string) (Result, error) {
	current, err := e.st.Triples(ctx, res.Area, res.Ref)
	if err != nil {
		return res, readErr(res.Ref, "read current facts", err)
	}

	u, changed := Diff(res.Area, res.Ref, staged, current)
	if u.IsEmpty() {
		log.Debug("reconcile: record up to date")
		res.Outcome = Unchanged
		return res, nil
	}
	if err := e.st.Update(ctx, u); err != nil {
		return res, writeErr(res.Ref, "update record", err)
	}

	res.Outcome = Updated
	res.Changed = changed
	log.WithFields(logrus.Fields{"deleted": len(u.Deletes), "inserted": len(u.Inserts)}).Info("reconcile: record updated")

	names := make([]string, len(changed))
	for i, p := range changed {
		names[i] = vocab.Local(p)
	}
	e.notifier.Notify(ctx, notify.Notification{
		Title:       "Mandataris bijgewerkt",
		Description: fmt.Sprintf("Mandataris %s werd bijgewerkt op basis van een besluit. Gewijzigde eigenschappen: %s.", res.Ref, strings.Join(names, ", ")),
		Severity:    notify.Info,
		Graph:       res.Area,
		Links:       links(res.Ref, decisions),
	})
	return res, nil
}
