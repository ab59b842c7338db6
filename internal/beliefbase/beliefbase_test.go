package beliefbase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

func belief(s string) domain.Belief {
	return domain.NewBelief(domain.MustParseLiteral(s), domain.SourcePercept)
}

func queryStrings(b *BeliefBase, pattern string) []string {
	var out []string
	for bel, s := range b.Query(domain.MustParseLiteral(pattern), domain.EmptySubstitution()) {
		out = append(out, bel.Literal.String()+" "+s.String())
	}
	return out
}

func TestBeliefBase_AddAndQuery(t *testing.T) {
	b := New()
	trig, err := b.Add(belief("foo(1, 2)"))
	require.NoError(t, err)
	assert.Equal(t, domain.AddBelief, trig.Type)
	assert.Equal(t, "foo(1, 2)", trig.Literal.String())

	assert.True(t, b.Contains(domain.MustParseLiteral("foo(1, 2)")))
	assert.Equal(t, []string{"foo(1, 2) {X=1, Y=2}"}, queryStrings(b, "foo(X, Y)"))
}

func TestBeliefBase_QueryInsertionOrder(t *testing.T) {
	b := New()
	for _, s := range []string{"n(3)", "n(1)", "other(1)", "n(2)"} {
		_, err := b.Add(belief(s))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"n(3) {X=3}", "n(1) {X=1}", "n(2) {X=2}"}, queryStrings(b, "n(X)"))
	assert.Equal(t, []string{"n(3)", "n(1)", "other(1)", "n(2)"}, literals(b.All()))
}

func TestBeliefBase_QueryIsRestartable(t *testing.T) {
	b := New()
	_, _ = b.Add(belief("n(1)"))
	seq := b.Query(domain.MustParseLiteral("n(X)"), domain.EmptySubstitution())

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 1, count())
	_, _ = b.Add(belief("n(2)"))
	assert.Equal(t, 2, count())
}

func TestBeliefBase_QueryToleratesMutationWhileIterating(t *testing.T) {
	b := New()
	_, _ = b.Add(belief("n(1)"))
	_, _ = b.Add(belief("n(2)"))

	var seen []string
	for bel := range b.Query(domain.MustParseLiteral("n(X)"), domain.EmptySubstitution()) {
		seen = append(seen, bel.Literal.String())
		b.Remove(bel.Literal)
		_, _ = b.Add(belief("n(9)"))
	}
	assert.Equal(t, []string{"n(1)", "n(2)"}, seen)
}

func TestBeliefBase_DuplicateRefreshes(t *testing.T) {
	b := New()
	_, _ = b.Add(domain.Belief{Literal: domain.MustParseLiteral("p(1)"), Source: domain.SourceInitial, Confidence: 0.2})
	trig, err := b.Add(domain.Belief{Literal: domain.MustParseLiteral("p(1)"), Source: domain.SourcePercept, Confidence: 0.9})
	require.NoError(t, err)

	assert.Equal(t, domain.AddBelief, trig.Type)
	assert.Equal(t, 1, b.Len())
	got := b.All()[0]
	assert.Equal(t, domain.SourcePercept, got.Source)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestBeliefBase_ConfidenceChangeRefreshes(t *testing.T) {
	b := New()
	_, err := b.Add(belief("temp(hot)[conf(0.8)]"))
	require.NoError(t, err)
	trig, err := b.Add(belief("temp(hot)[conf(0.3)]"))
	require.NoError(t, err)
	assert.Equal(t, "temp(hot)[conf(0.3)]", trig.Literal.String())

	require.Equal(t, 1, b.Len())
	assert.Equal(t, 0.3, b.All()[0].Confidence)

	_, ok := b.Remove(domain.MustParseLiteral("temp(hot)"))
	require.True(t, ok)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, queryStrings(b, "temp(X)"))
}

func TestBeliefBase_OtherAnnotationsStayDistinct(t *testing.T) {
	b := New()
	_, _ = b.Add(belief("temp(hot)[conf(0.8), source(a)]"))
	_, _ = b.Add(belief("temp(hot)[conf(0.8), source(b)]"))
	assert.Equal(t, 2, b.Len())
}

func TestBeliefBase_AllowDuplicates(t *testing.T) {
	b := New(AllowDuplicates())
	_, _ = b.Add(belief("p(1)"))
	_, _ = b.Add(belief("p(1)"))
	assert.Equal(t, 2, b.Len())
}

func TestBeliefBase_RemoveOnlyEmitsWhenPresent(t *testing.T) {
	b := New()
	_, ok := b.Remove(domain.MustParseLiteral("p(1)"))
	assert.False(t, ok)

	_, _ = b.Add(belief("p(1)"))
	trig, ok := b.Remove(domain.MustParseLiteral("p(X)"))
	require.True(t, ok)
	assert.Equal(t, domain.RemoveBelief, trig.Type)
	assert.Equal(t, "p(1)", trig.Literal.String())
	assert.Equal(t, 0, b.Len())
}

func TestBeliefBase_RejectsNonGround(t *testing.T) {
	b := New()
	_, err := b.Add(belief("p(X)"))
	assert.ErrorIs(t, err, domain.ErrNotGround)
}

func TestBeliefBase_StrongNegationIsSeparate(t *testing.T) {
	b := New()
	_, _ = b.Add(belief("~raining"))
	assert.Empty(t, queryStrings(b, "raining"))
	assert.Len(t, queryStrings(b, "~raining"), 1)
}

func literals(bs []domain.Belief) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Literal.String()
	}
	return out
}

func TestProperty_AddRemoveRoundTrip(t *testing.T) {
	genLiteral := rapid.Custom(func(t *rapid.T) domain.Literal {
		functor := rapid.SampledFrom([]string{"p", "q", "ns/r"}).Draw(t, "functor")
		n := rapid.IntRange(0, 2).Draw(t, "arity")
		args := make([]domain.Term, n)
		for i := range args {
			args[i] = domain.Num(float64(rapid.IntRange(0, 3).Draw(t, "arg")))
		}
		return domain.NewLiteral(functor, args...)
	})

	rapid.Check(t, func(rt *rapid.T) {
		b := New()
		for _, l := range rapid.SliceOfN(genLiteral, 0, 8).Draw(rt, "existing") {
			_, _ = b.Add(domain.NewBelief(l, domain.SourceInitial))
		}
		x := genLiteral.Draw(rt, "x")
		if b.Contains(x) {
			return
		}
		before := literals(b.All())

		added, err := b.Add(domain.NewBelief(x, domain.SourcePercept))
		if err != nil {
			rt.Fatal(err)
		}
		removed, ok := b.Remove(x)
		if !ok {
			rt.Fatalf("remove(%s) found nothing", x)
		}
		if added.Type != domain.AddBelief || removed.Type != domain.RemoveBelief {
			rt.Fatalf("unexpected events %s, %s", added, removed)
		}
		after := literals(b.All())
		if len(before) != len(after) {
			rt.Fatalf("before %v, after %v", before, after)
		}
		for i := range before {
			if before[i] != after[i] {
				rt.Fatalf("before %v, after %v", before, after)
			}
		}
	})
}
