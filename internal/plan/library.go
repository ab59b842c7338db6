// Package plan holds the plan library, guard evaluation and plan selection.
package plan

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

type indexKey struct {
	trigger domain.TriggerType
	sig     domain.Signature
}

// Stats counts how often a plan was selected and how its executions ended.
type Stats struct {
	Selected  uint64 `json:"selected"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
}

type counters struct {
	selected, succeeded, failed atomic.Uint64
}

// Library is the immutable set of plans and rules loaded into an agent,
// indexed by trigger type, functor path and arity. Only the statistics
// change after construction.
type Library struct {
	plans []domain.Plan
	index map[indexKey][]int
	rules map[domain.Signature][]domain.Rule
	stats []counters
}

// NewLibrary indexes plans in load order. Plan IDs are reassigned to their
// load position.
func NewLibrary(plans []domain.Plan, rules []domain.Rule) (*Library, error) {
	l := &Library{
		plans: make([]domain.Plan, len(plans)),
		index: make(map[indexKey][]int),
		rules: make(map[domain.Signature][]domain.Rule),
		stats: make([]counters, len(plans)),
	}
	for i, p := range plans {
		if !p.Pattern.Valid() {
			return nil, fmt.Errorf("plan %d (%s): empty trigger functor", i, p.Name)
		}
		switch p.Trigger {
		case domain.AddBelief, domain.RemoveBelief, domain.AddGoal, domain.RemoveGoal:
		default:
			return nil, fmt.Errorf("plan %d (%s): unsupported trigger type %s", i, p.Name, p.Trigger)
		}
		p.ID = i
		l.plans[i] = p
		k := indexKey{trigger: p.Trigger, sig: p.Pattern.Signature()}
		l.index[k] = append(l.index[k], i)
	}
	for k, ids := range l.index {
		sort.SliceStable(ids, func(a, b int) bool {
			return l.plans[ids[a]].Priority > l.plans[ids[b]].Priority
		})
		l.index[k] = ids
	}
	for _, r := range rules {
		if !r.Head.Valid() {
			return nil, fmt.Errorf("rule %s: empty head functor", r)
		}
		sig := r.Head.Signature()
		l.rules[sig] = append(l.rules[sig], r)
	}
	return l, nil
}

// Candidates returns the plans indexed under the trigger's type and literal
// signature, highest priority first and in load order within a priority.
func (l *Library) Candidates(t domain.Trigger) []*domain.Plan {
	ids := l.index[indexKey{trigger: t.Type, sig: t.Literal.Signature()}]
	out := make([]*domain.Plan, len(ids))
	for i, id := range ids {
		out[i] = &l.plans[id]
	}
	return out
}

// Has reports whether any plan is indexed for the trigger type and literal.
func (l *Library) Has(t domain.TriggerType, lit domain.Literal) bool {
	return len(l.index[indexKey{trigger: t, sig: lit.Signature()}]) > 0
}

func (l *Library) Plan(id int) (*domain.Plan, bool) {
	if id < 0 || id >= len(l.plans) {
		return nil, false
	}
	return &l.plans[id], true
}

func (l *Library) Len() int { return len(l.plans) }

func (l *Library) Rules(sig domain.Signature) []domain.Rule { return l.rules[sig] }

func (l *Library) RecordSelected(id int) {
	if id >= 0 && id < len(l.stats) {
		l.stats[id].selected.Add(1)
	}
}

func (l *Library) RecordOutcome(id int, succeeded bool) {
	if id < 0 || id >= len(l.stats) {
		return
	}
	if succeeded {
		l.stats[id].succeeded.Add(1)
	} else {
		l.stats[id].failed.Add(1)
	}
}

func (l *Library) Stats(id int) Stats {
	if id < 0 || id >= len(l.stats) {
		return Stats{}
	}
	c := &l.stats[id]
	return Stats{Selected: c.selected.Load(), Succeeded: c.succeeded.Load(), Failed: c.failed.Load()}
}
