// Package beliefbase stores an agent's ground beliefs, indexed by literal
// signature and kept in insertion order.
package beliefbase

import (
	"fmt"
	"iter"
	"sort"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/unify"
)

type entry struct {
	belief domain.Belief
	seq    uint64
}

// BeliefBase is not safe for concurrent use; it is owned by a single agent.
type BeliefBase struct {
	index           map[domain.Signature][]entry
	seq             uint64
	allowDuplicates bool
}

type Option func(*BeliefBase)

// AllowDuplicates keeps every added copy of an identical literal instead of
// refreshing the stored one.
func AllowDuplicates() Option {
	return func(b *BeliefBase) { b.allowDuplicates = true }
}

func New(opts ...Option) *BeliefBase {
	b := &BeliefBase{index: make(map[domain.Signature][]entry)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add stores a ground belief and returns the AddBelief trigger describing it.
// Adding a literal that differs from a stored one only in its conf
// annotation refreshes the stored belief in place, and the trigger is
// returned either way.
func (b *BeliefBase) Add(belief domain.Belief) (domain.Trigger, error) {
	if !belief.Literal.Valid() {
		return domain.Trigger{}, fmt.Errorf("add belief: empty functor")
	}
	if !belief.Literal.IsGround() {
		return domain.Trigger{}, fmt.Errorf("add belief %s: %w", belief.Literal, domain.ErrNotGround)
	}
	sig := belief.Literal.Signature()
	entries := b.index[sig]

	refreshed := false
	if !b.allowDuplicates {
		for i := range entries {
			if sameFact(entries[i].belief.Literal, belief.Literal) {
				updated := make([]entry, len(entries))
				copy(updated, entries)
				updated[i].belief = belief
				b.index[sig] = updated
				refreshed = true
				break
			}
		}
	}
	if !refreshed {
		b.seq++
		b.index[sig] = append(entries, entry{belief: belief, seq: b.seq})
	}
	return domain.NewTrigger(domain.AddBelief, belief.Literal), nil
}

// sameFact compares two literals ignoring their confidence annotation.
func sameFact(a, b domain.Literal) bool {
	return withoutConfidence(a).Equal(withoutConfidence(b))
}

func withoutConfidence(l domain.Literal) domain.Literal {
	if _, ok := l.Annotation(domain.ConfidenceAnnotation); !ok {
		return l
	}
	annots := make(map[string]domain.Term, len(l.Annotations)-1)
	for k, v := range l.Annotations {
		if k != domain.ConfidenceAnnotation {
			annots[k] = v
		}
	}
	l.Annotations = annots
	return l
}

// Remove deletes the first stored belief unifying with pattern. The trigger
// carries the removed literal and is only produced when something was removed.
func (b *BeliefBase) Remove(pattern domain.Literal) (domain.Trigger, bool) {
	sig := pattern.Signature()
	entries := b.index[sig]
	for i, e := range entries {
		if _, ok := unify.Literals(pattern, e.belief.Literal, domain.EmptySubstitution()); !ok {
			continue
		}
		rest := make([]entry, 0, len(entries)-1)
		rest = append(rest, entries[:i]...)
		rest = append(rest, entries[i+1:]...)
		if len(rest) == 0 {
			delete(b.index, sig)
		} else {
			b.index[sig] = rest
		}
		return domain.NewTrigger(domain.RemoveBelief, e.belief.Literal), true
	}
	return domain.Trigger{}, false
}

// Query yields every belief unifying with pattern under s, in insertion order,
// together with the extended substitution. The sequence is lazy and scans the
// state current at the time iteration starts, so it may be re-run.
func (b *BeliefBase) Query(pattern domain.Literal, s domain.Substitution) iter.Seq2[domain.Belief, domain.Substitution] {
	return func(yield func(domain.Belief, domain.Substitution) bool) {
		entries := b.index[pattern.Signature()]
		for _, e := range entries {
			out, ok := unify.Literals(pattern, e.belief.Literal, s)
			if !ok {
				continue
			}
			if !yield(e.belief, out) {
				return
			}
		}
	}
}

// Contains reports whether an identical literal is stored.
func (b *BeliefBase) Contains(l domain.Literal) bool {
	for _, e := range b.index[l.Signature()] {
		if e.belief.Literal.Equal(l) {
			return true
		}
	}
	return false
}

func (b *BeliefBase) Len() int {
	n := 0
	for _, entries := range b.index {
		n += len(entries)
	}
	return n
}

// All returns every belief in insertion order.
func (b *BeliefBase) All() []domain.Belief {
	var all []entry
	for _, entries := range b.index {
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	out := make([]domain.Belief, len(all))
	for i, e := range all {
		out[i] = e.belief
	}
	return out
}
