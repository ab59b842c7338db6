package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/agentspeak/internal/agent"
	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

func TestCollector_StepCompleted(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	trigger := domain.NewTrigger(domain.AddGoal, domain.Atom("g"))
	inner := &domain.Failure{Kind: domain.ActionExecutionError, Cause: errors.New("x")}
	c.StepCompleted("a", agent.CycleOutcome{
		Trigger:   &trigger,
		Unhandled: true,
		Selected:  []string{"p1", "p2"},
		Completed: []string{"+!g"},
		Failures:  []*domain.Failure{inner.Escalate("i")},
	}, time.Millisecond)
	c.StepCompleted("a", agent.CycleOutcome{Idle: true}, 0)
	c.StepCompleted("a", agent.CycleOutcome{Sleeping: true}, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.steps.WithLabelValues("progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.steps.WithLabelValues("idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.steps.WithLabelValues("sleeping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.triggers.WithLabelValues("+!")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unhandled.WithLabelValues("+!")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.selected))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.completed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("action_execution_error")))
}

func TestCollector_ActionInvoked(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.ActionInvoked("a", "math/sum", domain.Truth(true), time.Microsecond)
	c.ActionInvoked("a", "math/sum", domain.Truth(false), time.Microsecond)
	c.ActionInvoked("a", "math/sum", domain.Failed(errors.New("boom")), time.Microsecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("math/sum", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("math/sum", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("math/sum", "error")))
}

func TestCollector_ObservesAgent(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())
	p := &domain.Program{
		Goals: []domain.Literal{domain.Atom("g")},
		Plans: []domain.Plan{{Name: "g", Trigger: domain.AddGoal, Pattern: domain.Atom("g")}},
	}
	a, err := agent.New(p, agent.Config{}, agent.WithObserver(c))
	require.NoError(t, err)

	a.Run(context.Background(), 10)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.completed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.steps.WithLabelValues("idle")))

	c.SetAgents(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(c.agents))
}
