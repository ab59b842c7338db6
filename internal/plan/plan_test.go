package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/agentspeak/internal/beliefbase"
	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/fuzzy"
)

type invokerFunc func(ctx context.Context, name domain.Path, args []domain.Term, parallel bool) (domain.FuzzyValue, []domain.Term)

func (f invokerFunc) Invoke(ctx context.Context, name domain.Path, args []domain.Term, parallel bool) (domain.FuzzyValue, []domain.Term) {
	return f(ctx, name, args, parallel)
}

func lit(s string) domain.Literal { return domain.MustParseLiteral(s) }

func beliefs(t *testing.T, facts ...string) *beliefbase.BeliefBase {
	t.Helper()
	bb := beliefbase.New()
	for _, f := range facts {
		_, err := bb.Add(domain.NewBelief(lit(f), domain.SourceInitial))
		require.NoError(t, err)
	}
	return bb
}

func goalPlan(name, pattern string, guard *domain.Expr) domain.Plan {
	return domain.Plan{Name: name, Trigger: domain.AddGoal, Pattern: lit(pattern), Guard: guard}
}

func guard(e domain.Expr) *domain.Expr { return &e }

func solutions(t *testing.T, ev *Evaluator, e domain.Expr) []string {
	t.Helper()
	var out []string
	for sol := range ev.Solve(context.Background(), e, domain.EmptySubstitution()) {
		out = append(out, sol.Subst.String()+" "+sol.Value.String())
	}
	return out
}

func TestLibrary_CandidatesOrder(t *testing.T) {
	plans := []domain.Plan{
		goalPlan("first", "task", nil),
		goalPlan("other", "task(X)", nil),
		goalPlan("second", "task", nil),
		{Name: "urgent", Trigger: domain.AddGoal, Pattern: lit("task"), Priority: 5},
		{Name: "belief", Trigger: domain.AddBelief, Pattern: lit("task")},
	}
	lib, err := NewLibrary(plans, nil)
	require.NoError(t, err)

	var names []string
	for _, p := range lib.Candidates(domain.NewTrigger(domain.AddGoal, lit("task"))) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"urgent", "first", "second"}, names)
	assert.True(t, lib.Has(domain.AddBelief, lit("task")))
	assert.False(t, lib.Has(domain.RemoveGoal, lit("task")))

	p, ok := lib.Plan(2)
	require.True(t, ok)
	assert.Equal(t, 2, p.ID)
}

func TestLibrary_RejectsInvalidPlans(t *testing.T) {
	_, err := NewLibrary([]domain.Plan{{Trigger: domain.AddGoal}}, nil)
	assert.Error(t, err)

	_, err = NewLibrary([]domain.Plan{{Trigger: domain.AddGoalAchieved, Pattern: lit("x")}}, nil)
	assert.Error(t, err)
}

func TestLibrary_Stats(t *testing.T) {
	lib, err := NewLibrary([]domain.Plan{goalPlan("p", "g", nil)}, nil)
	require.NoError(t, err)

	lib.RecordSelected(0)
	lib.RecordOutcome(0, true)
	lib.RecordOutcome(0, false)
	lib.RecordOutcome(7, true)

	assert.Equal(t, Stats{Selected: 1, Succeeded: 1, Failed: 1}, lib.Stats(0))
}

func TestEvaluator_Expressions(t *testing.T) {
	bb := beliefs(t, "n(1)", "n(2)", "n(3)", "name(bob)", "w(x)[conf(0.4)]")
	ev := &Evaluator{Beliefs: bb}

	tests := []struct {
		name string
		expr domain.Expr
		want []string
	}{
		{"true", domain.True(), []string{"{} pass(1)"}},
		{"false", domain.False(), nil},
		{"belief", domain.BeliefExpr(lit("n(X)")), []string{"{X=1} pass(1)", "{X=2} pass(1)", "{X=3} pass(1)"}},
		{"graded belief", domain.BeliefExpr(lit("w(x)")), []string{"{} pass(0.4)"}},
		{"and with compare", domain.And(
			domain.BeliefExpr(lit("n(X)")),
			domain.Compare(domain.OpGt, domain.Value(domain.Var("X")), domain.Value(domain.Num(1))),
		), []string{"{X=2} pass(1)", "{X=3} pass(1)"}},
		{"and takes weakest degree", domain.And(
			domain.BeliefExpr(lit("w(x)")),
			domain.BeliefExpr(lit("name(N)")),
		), []string{"{N=bob} pass(0.4)"}},
		{"or", domain.Or(
			domain.BeliefExpr(lit("name(N)")),
			domain.BeliefExpr(lit("missing(N)")),
			domain.True(),
		), []string{"{N=bob} pass(1)", "{} pass(1)"}},
		{"not holds", domain.Not(domain.BeliefExpr(lit("missing"))), []string{"{} pass(1)"}},
		{"not fails", domain.Not(domain.BeliefExpr(lit("n(_)"))), nil},
		{"unify", domain.UnifyExpr(
			domain.Value(domain.Var("Y")),
			domain.Arith(domain.ArithMul, domain.Value(domain.Num(6)), domain.Value(domain.Num(7))),
		), []string{"{Y=42} pass(1)"}},
		{"string order", domain.Compare(domain.OpLt, domain.Value(domain.Str("a")), domain.Value(domain.Str("b"))), []string{"{} pass(1)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, solutions(t, ev, tt.expr))
		})
	}
}

func TestEvaluator_CompareErrorIsHardFailure(t *testing.T) {
	ev := &Evaluator{}
	e := domain.Compare(domain.OpLt, domain.Value(domain.Var("Unbound")), domain.Value(domain.Num(1)))

	sol, ok := ev.First(context.Background(), e, domain.EmptySubstitution())
	assert.False(t, ok)
	assert.ErrorIs(t, sol.Value.Err, domain.ErrNotEvaluable)
}

func TestEvaluator_AggregationDecidesConjunction(t *testing.T) {
	boom := errors.New("boom")
	failing := invokerFunc(func(context.Context, domain.Path, []domain.Term, bool) (domain.FuzzyValue, []domain.Term) {
		return domain.Failed(boom), nil
	})
	e := domain.And(domain.True(), domain.ActionExpr(domain.ActionCall{Name: domain.ParsePath("x/fail")}))

	strict := &Evaluator{Invoker: failing}
	sol, ok := strict.First(context.Background(), e, domain.EmptySubstitution())
	assert.False(t, ok)
	assert.ErrorIs(t, sol.Value.Err, boom)

	lenient := &Evaluator{Invoker: failing, Aggregation: fuzzy.Any{}}
	_, ok = lenient.First(context.Background(), e, domain.EmptySubstitution())
	assert.True(t, ok)
}

func TestEvaluator_Rules(t *testing.T) {
	bb := beliefs(t, "parent(ann, bob)", "parent(bob, cid)", "parent(cid, dan)")
	body1 := domain.BeliefExpr(lit("parent(X, Y)"))
	body2 := domain.And(domain.BeliefExpr(lit("parent(X, Z)")), domain.RuleExpr(lit("ancestor(Z, Y)")))
	lib, err := NewLibrary(nil, []domain.Rule{
		{Head: lit("ancestor(X, Y)"), Body: &body1},
		{Head: lit("ancestor(X, Y)"), Body: &body2},
		{Head: lit("root(ann)")},
	})
	require.NoError(t, err)
	ev := &Evaluator{Beliefs: bb, Rules: lib}

	var found []string
	for sol := range ev.Solve(context.Background(), domain.BeliefExpr(lit("ancestor(ann, W)")), domain.EmptySubstitution()) {
		require.True(t, sol.Value.Pass)
		found = append(found, sol.Subst.Apply(domain.Var("W")).String())
	}
	assert.Equal(t, []string{"bob", "cid", "dan"}, found)

	_, ok := ev.First(context.Background(), domain.RuleExpr(lit("root(R)")), domain.EmptySubstitution())
	assert.True(t, ok)
}

func TestEvaluator_RuleDepthLimit(t *testing.T) {
	body := domain.RuleExpr(lit("loop(X)"))
	lib, err := NewLibrary(nil, []domain.Rule{{Head: lit("loop(X)"), Body: &body}})
	require.NoError(t, err)
	ev := &Evaluator{Rules: lib, MaxRuleDepth: 8}

	sol, ok := ev.First(context.Background(), domain.RuleExpr(lit("loop(1)")), domain.EmptySubstitution())
	assert.False(t, ok)
	assert.ErrorIs(t, sol.Value.Err, domain.ErrRuleDepth)
}

func TestEvaluator_CallUnifiesReturns(t *testing.T) {
	ev := &Evaluator{Invoker: invokerFunc(func(_ context.Context, name domain.Path, args []domain.Term, _ bool) (domain.FuzzyValue, []domain.Term) {
		assert.Equal(t, "math/double", name.String())
		n, _ := args[0].(domain.Constant).Number()
		return domain.Graded(0.7), []domain.Term{domain.Num(n * 2)}
	})}
	s := domain.EmptySubstitution().Bind("X", domain.Num(4))
	call := domain.ActionCall{Name: domain.ParsePath("math/double"), Args: []domain.Term{domain.Var("X")}, Returns: []domain.Term{domain.Var("R")}}

	value, out := ev.Call(context.Background(), call, s)
	assert.True(t, value.Pass)
	assert.Equal(t, "{R=8, X=4}", out.String())

	call.Returns = []domain.Term{domain.Num(9)}
	value, _ = ev.Call(context.Background(), call, s)
	assert.False(t, value.Pass)
}

func TestSelector_MaxPicksHigherScore(t *testing.T) {
	bb := beliefs(t, "cheap[conf(0.3)]", "good[conf(0.8)]")
	lib, err := NewLibrary([]domain.Plan{
		goalPlan("low", "task", guard(domain.BeliefExpr(lit("cheap")))),
		goalPlan("high", "task", guard(domain.BeliefExpr(lit("good")))),
	}, nil)
	require.NoError(t, err)
	sel := &Selector{Library: lib, Evaluator: &Evaluator{Beliefs: bb}, Rank: fuzzy.Max{}}

	got := sel.Select(context.Background(), domain.NewTrigger(domain.AddGoal, lit("task")), false)
	require.True(t, got.Handled())
	assert.Equal(t, "high", got.Chosen[0].Plan.Name)
	assert.InDelta(t, 0.8, got.Chosen[0].Value.Degree, 1e-9)

	sel.Rank = fuzzy.Min{}
	got = sel.Select(context.Background(), domain.NewTrigger(domain.AddGoal, lit("task")), false)
	assert.Equal(t, "low", got.Chosen[0].Plan.Name)
}

func TestSelector_DeterministicTieBreak(t *testing.T) {
	lib, err := NewLibrary([]domain.Plan{
		goalPlan("a", "task", nil),
		goalPlan("b", "task", nil),
		goalPlan("c", "task", nil),
	}, nil)
	require.NoError(t, err)
	sel := &Selector{Library: lib, Evaluator: &Evaluator{}, Rank: fuzzy.Max{}}

	for i := 0; i < 20; i++ {
		got := sel.Select(context.Background(), domain.NewTrigger(domain.AddGoal, lit("task")), false)
		require.True(t, got.Handled())
		assert.Equal(t, "a", got.Chosen[0].Plan.Name)
	}
}

func TestSelector_BindsTriggerAndGuard(t *testing.T) {
	bb := beliefs(t, "friend(bob)", "friend(eve)")
	lib, err := NewLibrary([]domain.Plan{
		goalPlan("greet", "greet(X)", guard(domain.BeliefExpr(lit("friend(X)")))),
	}, nil)
	require.NoError(t, err)
	sel := &Selector{Library: lib, Evaluator: &Evaluator{Beliefs: bb}}

	got := sel.Select(context.Background(), domain.NewTrigger(domain.AddGoal, lit("greet(eve)")), false)
	require.True(t, got.Handled())
	assert.Equal(t, "{X=eve}", got.Chosen[0].Subst.String())

	got = sel.Select(context.Background(), domain.NewTrigger(domain.AddGoal, lit("greet(mallory)")), false)
	assert.False(t, got.Handled())
	assert.Equal(t, 1, got.Considered)
}

func TestSelector_GuardFailuresAreReported(t *testing.T) {
	lib, err := NewLibrary([]domain.Plan{
		goalPlan("broken", "task", guard(domain.Compare(domain.OpLt, domain.Value(domain.Str("a")), domain.Value(domain.Num(1))))),
		goalPlan("fallback", "task", nil),
	}, nil)
	require.NoError(t, err)
	sel := &Selector{Library: lib, Evaluator: &Evaluator{}}

	got := sel.Select(context.Background(), domain.NewTrigger(domain.AddGoal, lit("task")), false)
	require.True(t, got.Handled())
	assert.Equal(t, "fallback", got.Chosen[0].Plan.Name)
	require.Len(t, got.GuardFailures, 1)

	var f *domain.Failure
	require.ErrorAs(t, got.GuardFailures[0], &f)
	assert.Equal(t, domain.GuardEvaluationFailure, f.Kind)
}

func TestSelector_ParallelThreshold(t *testing.T) {
	bb := beliefs(t, "a[conf(0.2)]", "b[conf(0.6)]", "c[conf(0.9)]")
	lib, err := NewLibrary([]domain.Plan{
		goalPlan("pa", "task", guard(domain.BeliefExpr(lit("a")))),
		goalPlan("pb", "task", guard(domain.BeliefExpr(lit("b")))),
		goalPlan("pc", "task", guard(domain.BeliefExpr(lit("c")))),
	}, nil)
	require.NoError(t, err)
	sel := &Selector{Library: lib, Evaluator: &Evaluator{Beliefs: bb}, Rank: fuzzy.Max{}, Threshold: 0.5}

	got := sel.Select(context.Background(), domain.NewTrigger(domain.AddGoal, lit("task")), true)
	var names []string
	for _, c := range got.Chosen {
		names = append(names, c.Plan.Name)
	}
	assert.Equal(t, []string{"pc", "pb"}, names)
}
