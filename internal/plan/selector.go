package plan

import (
	"context"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/fuzzy"
	"github.com/Harshitk-cp/agentspeak/internal/unify"
)

// Candidate is an applicable plan instance: the plan, the substitution its
// trigger pattern and guard produced, and the guard's value.
type Candidate struct {
	Plan  *domain.Plan
	Subst domain.Substitution
	Value domain.FuzzyValue
}

// Selection is the result of matching one trigger against the library.
type Selection struct {
	Chosen []Candidate
	// Considered counts plans whose trigger pattern unified.
	Considered int
	// GuardFailures holds the hard failures raised while evaluating guards.
	GuardFailures []error
}

func (s Selection) Handled() bool { return len(s.Chosen) > 0 }

// Selector runs the plan selection algorithm.
type Selector struct {
	Library   *Library
	Evaluator *Evaluator
	Rank      fuzzy.Aggregation
	// Threshold is the minimum degree for parallel selection.
	Threshold float64
}

// Applicable returns every passing (plan, substitution, value) tuple for t, in
// candidate order and, within a plan, in guard solution order.
func (sel *Selector) Applicable(ctx context.Context, t domain.Trigger) ([]Candidate, Selection) {
	var out []Candidate
	var report Selection
	for _, p := range sel.Library.Candidates(t) {
		s, ok := unify.Literals(p.Pattern, t.Literal, domain.EmptySubstitution())
		if !ok {
			continue
		}
		report.Considered++
		if p.Guard == nil {
			out = append(out, Candidate{Plan: p, Subst: s, Value: domain.Truth(true)})
			continue
		}
		for sol := range sel.Evaluator.Solve(ctx, *p.Guard, s) {
			if sol.Value.Failed() {
				if sol.Value.Err != nil {
					report.GuardFailures = append(report.GuardFailures, &domain.Failure{
						Kind:  domain.GuardEvaluationFailure,
						Plan:  p.Label(),
						Cause: sol.Value.Err,
					})
				}
				continue
			}
			out = append(out, Candidate{Plan: p, Subst: sol.Subst, Value: sol.Value})
		}
	}
	return out, report
}

// Select picks the winning candidate for t. With parallel set it returns
// the best solution of every plan whose degree reaches the threshold.
func (sel *Selector) Select(ctx context.Context, t domain.Trigger, parallel bool) Selection {
	candidates, report := sel.Applicable(ctx, t)
	if len(candidates) == 0 {
		return report
	}
	values := make([]domain.FuzzyValue, len(candidates))
	for i, c := range candidates {
		values[i] = c.Value
	}
	rank := sel.Rank
	if rank == nil {
		rank = fuzzy.Max{}
	}
	order := rank.Rank(values)
	if len(order) == 0 {
		return report
	}
	if !parallel {
		report.Chosen = []Candidate{candidates[order[0]]}
		return report
	}
	seen := make(map[int]struct{})
	for _, i := range order {
		c := candidates[i]
		if c.Value.Degree < sel.Threshold {
			continue
		}
		if _, dup := seen[c.Plan.ID]; dup {
			continue
		}
		seen[c.Plan.ID] = struct{}{}
		report.Chosen = append(report.Chosen, c)
	}
	return report
}
