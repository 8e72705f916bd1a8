package delta

import (
	"slices"

	"github.com/roach88/mandaatsync/internal/vocab"
)

// Filter selects ratified mandate references from change-sets.
type Filter struct {
	// StagingGraph is the only graph whose facts are considered.
	StagingGraph string
	// Predicates are the ratification relations. Defaults to
	// vocab.RatificationPredicates when empty.
	Predicates []string
}

// Refs returns the distinct object IRIs of facts in the staging graph whose
// predicate is a ratification relation, from inserts and deletes alike, in
// first-seen order.
func (f Filter) Refs(changes []ChangeSet) []string {
	preds := f.Predicates
	if len(preds) == 0 {
		preds = vocab.RatificationPredicates
	}

	var refs []string
	seen := make(map[string]bool)
	keep := func(fact Fact) {
		if fact.Graph.Value != f.StagingGraph || !slices.Contains(preds, fact.Predicate.Value) {
			return
		}
		if fact.Object.Type != TypeURI || fact.Object.Value == "" || seen[fact.Object.Value] {
			return
		}
		seen[fact.Object.Value] = true
		refs = append(refs, fact.Object.Value)
	}

	for _, cs := range changes {
		for _, fact := range cs.Inserts {
			keep(fact)
		}
		for _, fact := range cs.Deletes {
			keep(fact)
		}
	}
	return refs
}
