package plan

import (
	"context"
	"fmt"
	"iter"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/fuzzy"
	"github.com/Harshitk-cp/agentspeak/internal/unify"
)

const DefaultMaxRuleDepth = 64

// BeliefQuerier is the read side of the belief base.
type BeliefQuerier interface {
	Query(pattern domain.Literal, s domain.Substitution) iter.Seq2[domain.Belief, domain.Substitution]
}

// RuleSource returns the rules whose head has the given signature.
type RuleSource interface {
	Rules(sig domain.Signature) []domain.Rule
}

// Invoker dispatches an action call with already-resolved arguments.
type Invoker interface {
	Invoke(ctx context.Context, name domain.Path, args []domain.Term, parallel bool) (domain.FuzzyValue, []domain.Term)
}

// Solution is one way an expression holds: the extended substitution and
// the graded value it holds with. A solution whose value failed is a hard
// failure and carries the substitution the expression was entered with.
type Solution struct {
	Subst domain.Substitution
	Value domain.FuzzyValue
}

// Evaluator resolves guard and condition expressions. Belief expressions
// query the belief base first and then rules with a matching head; each
// rule use renames its variables apart.
type Evaluator struct {
	Beliefs      BeliefQuerier
	Rules        RuleSource
	Invoker      Invoker
	Aggregation  fuzzy.Aggregation
	MaxRuleDepth int

	renamer unify.Renamer
}

// Solve lazily enumerates the solutions of e under s.
func (e *Evaluator) Solve(ctx context.Context, expr domain.Expr, s domain.Substitution) iter.Seq[Solution] {
	return func(yield func(Solution) bool) {
		e.solve(ctx, expr, s, 0, yield)
	}
}

// First returns the first passing solution of expr, or the first hard
// failure when no solution passes.
func (e *Evaluator) First(ctx context.Context, expr domain.Expr, s domain.Substitution) (Solution, bool) {
	var failure *Solution
	for sol := range e.Solve(ctx, expr, s) {
		if sol.Value.Pass {
			return sol, true
		}
		if failure == nil {
			f := sol
			failure = &f
		}
	}
	if failure != nil {
		return *failure, false
	}
	return Solution{Subst: s, Value: domain.Truth(false)}, false
}

// Call resolves the arguments of an action call, invokes it and unifies the
// returned terms with the call's return patterns.
func (e *Evaluator) Call(ctx context.Context, call domain.ActionCall, s domain.Substitution) (domain.FuzzyValue, domain.Substitution) {
	if e.Invoker == nil {
		return domain.Failed(fmt.Errorf("%w: %s", domain.ErrUnknownAction, call.Name)), s
	}
	args := make([]domain.Term, len(call.Args))
	for i, a := range call.Args {
		args[i] = s.Apply(a)
	}
	value, returned := e.Invoker.Invoke(ctx, call.Name, args, call.Parallel)
	if value.Failed() || len(call.Returns) == 0 {
		return value, s
	}
	if len(returned) < len(call.Returns) {
		return domain.Failed(fmt.Errorf("action %s returned %d values, %d expected", call.Name, len(returned), len(call.Returns))), s
	}
	out := s
	for i, pattern := range call.Returns {
		var ok bool
		if out, ok = unify.Terms(pattern, returned[i], out); !ok {
			return domain.Truth(false), s
		}
	}
	return value, out
}

func (e *Evaluator) aggregation() fuzzy.Aggregation {
	if e.Aggregation == nil {
		return fuzzy.All{}
	}
	return e.Aggregation
}

func (e *Evaluator) maxDepth() int {
	if e.MaxRuleDepth <= 0 {
		return DefaultMaxRuleDepth
	}
	return e.MaxRuleDepth
}

func (e *Evaluator) solve(ctx context.Context, expr domain.Expr, s domain.Substitution, depth int, yield func(Solution) bool) bool {
	if ctx.Err() != nil {
		return yield(Solution{Subst: s, Value: domain.Failed(ctx.Err())})
	}
	switch expr.Kind {
	case domain.ExprTrue:
		return yield(Solution{Subst: s, Value: domain.Truth(true)})

	case domain.ExprFalse:
		return true

	case domain.ExprBelief:
		if e.Beliefs != nil {
			for b, out := range e.Beliefs.Query(expr.Literal, s) {
				if !yield(Solution{Subst: out, Value: domain.Graded(b.Confidence)}) {
					return false
				}
			}
		}
		return e.solveRules(ctx, expr.Literal, s, depth, yield)

	case domain.ExprRule:
		return e.solveRules(ctx, expr.Literal, s, depth, yield)

	case domain.ExprAnd:
		return e.solveAnd(ctx, expr.Children, s, depth, nil, yield)

	case domain.ExprOr:
		for _, child := range expr.Children {
			if !e.solve(ctx, child, s, depth, yield) {
				return false
			}
		}
		return true

	case domain.ExprNot:
		if len(expr.Children) != 1 {
			return yield(Solution{Subst: s, Value: domain.Failed(fmt.Errorf("%w: not takes one operand", domain.ErrNotEvaluable))})
		}
		holds := false
		var hardErr error
		e.solve(ctx, expr.Children[0], s, depth, func(sol Solution) bool {
			if sol.Value.Pass {
				holds = true
				return false
			}
			if sol.Value.Err != nil && hardErr == nil {
				hardErr = sol.Value.Err
			}
			return true
		})
		switch {
		case holds:
			return true
		case hardErr != nil:
			return yield(Solution{Subst: s, Value: domain.Failed(hardErr)})
		}
		return yield(Solution{Subst: s, Value: domain.Truth(true)})

	case domain.ExprCompare:
		left, err := EvalOperand(expr.Left, s)
		if err != nil {
			return yield(Solution{Subst: s, Value: domain.Failed(err)})
		}
		right, err := EvalOperand(expr.Right, s)
		if err != nil {
			return yield(Solution{Subst: s, Value: domain.Failed(err)})
		}
		ok, err := Compare(expr.Op, left, right)
		if err != nil {
			return yield(Solution{Subst: s, Value: domain.Failed(err)})
		}
		if !ok {
			return true
		}
		return yield(Solution{Subst: s, Value: domain.Truth(true)})

	case domain.ExprUnify:
		left, err := unifyOperand(expr.Left, s)
		if err != nil {
			return yield(Solution{Subst: s, Value: domain.Failed(err)})
		}
		right, err := unifyOperand(expr.Right, s)
		if err != nil {
			return yield(Solution{Subst: s, Value: domain.Failed(err)})
		}
		out, ok := unify.Terms(left, right, s)
		if !ok {
			return true
		}
		return yield(Solution{Subst: out, Value: domain.Truth(true)})

	case domain.ExprAction:
		value, out := e.Call(ctx, expr.Call, s)
		if value.Failed() && value.Err == nil {
			// a plain false from an action is an ordinary "does not hold"
			return true
		}
		return yield(Solution{Subst: out, Value: value})
	}
	return yield(Solution{Subst: s, Value: domain.Failed(fmt.Errorf("%w: expression kind %d", domain.ErrNotEvaluable, expr.Kind))})
}

// unifyOperand keeps plain terms unapplied so unification can bind their
// variables, and evaluates arithmetic nodes.
func unifyOperand(o domain.Operand, s domain.Substitution) (domain.Term, error) {
	if o.Op == domain.ArithNone && o.Term != nil {
		return o.Term, nil
	}
	return EvalOperand(o, s)
}

func (e *Evaluator) solveAnd(ctx context.Context, children []domain.Expr, s domain.Substitution, depth int, values []domain.FuzzyValue, yield func(Solution) bool) bool {
	if len(children) == 0 {
		return yield(Solution{Subst: s, Value: e.aggregation().Combine(values)})
	}
	return e.solve(ctx, children[0], s, depth, func(sol Solution) bool {
		acc := append(values[:len(values):len(values)], sol.Value)
		if sol.Value.Failed() {
			combined := e.aggregation().Combine(acc)
			if combined.Failed() {
				return yield(Solution{Subst: s, Value: combined})
			}
		}
		return e.solveAnd(ctx, children[1:], sol.Subst, depth, acc, yield)
	})
}

func (e *Evaluator) solveRules(ctx context.Context, goal domain.Literal, s domain.Substitution, depth int, yield func(Solution) bool) bool {
	if e.Rules == nil {
		return true
	}
	rules := e.Rules.Rules(goal.Signature())
	if len(rules) == 0 {
		return true
	}
	if depth >= e.maxDepth() {
		return yield(Solution{Subst: s, Value: domain.Failed(fmt.Errorf("%w: %s", domain.ErrRuleDepth, goal))})
	}
	for _, r := range rules {
		rename := e.renamer.Fresh()
		head := domain.Rename(r.Head, rename).(domain.Literal)
		out, ok := unify.Literals(head, goal, s)
		if !ok {
			continue
		}
		if r.Body == nil {
			if !yield(Solution{Subst: out, Value: domain.Truth(true)}) {
				return false
			}
			continue
		}
		if !e.solve(ctx, r.Body.Rename(rename), out, depth+1, yield) {
			return false
		}
	}
	return true
}
