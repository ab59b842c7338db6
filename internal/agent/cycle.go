package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/intention"
	"github.com/Harshitk-cp/agentspeak/internal/plan"
	"github.com/Harshitk-cp/agentspeak/internal/unify"
)

// CycleOutcome reports what one reasoning step did.
type CycleOutcome struct {
	// Cycle is the counter after the step.
	Cycle uint64
	// Idle is set when there was neither a trigger nor a runnable intention.
	// Idle steps do not advance the counter.
	Idle bool
	// Sleeping is set when the step was skipped because the agent sleeps.
	Sleeping bool
	// Trigger is the trigger dequeued in this step, if any.
	Trigger *domain.Trigger
	// Selected lists the plans that became frames in this step.
	Selected []string
	// Unhandled is set when no plan was applicable to Trigger.
	Unhandled bool
	// Instruction is the instruction executed, if any.
	Instruction string
	// Completed lists top-level goals whose intentions finished.
	Completed []string
	// Cancelled lists intentions removed by goal removal.
	Cancelled []string
	// Failures lists unrecoverable failures, one per discarded intention.
	Failures []*domain.Failure
}

// Step runs one reasoning cycle: it handles at most one trigger and executes
// at most one instruction of the next runnable intention.
func (a *Agent) Step(ctx context.Context) CycleOutcome {
	start := time.Now()
	out := a.step(ctx)
	a.observer.StepCompleted(a.id, out, time.Since(start))
	return out
}

func (a *Agent) step(ctx context.Context) CycleOutcome {
	if a.sleeping {
		if a.sleepLeft > 0 {
			a.sleepLeft--
			if a.sleepLeft == 0 {
				a.wake()
			}
		}
		return CycleOutcome{Cycle: a.cycle, Sleeping: true}
	}

	var out CycleOutcome
	progressed := false
	if t, ok := a.queue.Dequeue(); ok {
		progressed = true
		out.Trigger = &t
		a.handle(ctx, t, &out)
	}
	if in, ok := a.intentions.Next(); ok {
		progressed = true
		a.execute(ctx, in, &out)
	}
	if !progressed {
		out.Idle = true
		out.Cycle = a.cycle
		return out
	}
	a.cycle++
	out.Cycle = a.cycle
	return out
}

func (a *Agent) handle(ctx context.Context, t domain.Trigger, out *CycleOutcome) {
	switch t.Type {
	case domain.AddGoalAchieved:
		a.resume(t)
		return
	case domain.AddGoalFailed:
		// failures propagate synchronously through failFrame
		a.logger.Debug("ignoring queued goal failure", zap.Stringer("trigger", t))
		return
	case domain.RemoveGoal:
		if len(a.cancel(t.Literal, out)) > 0 {
			return
		}
	}

	var (
		in     *intention.Intention
		parent *intention.Frame
	)
	if t.Origin != nil {
		var ok bool
		if in, parent, ok = a.origin(*t.Origin); !ok {
			a.logger.Debug("dropping trigger for finished intention", zap.Stringer("trigger", t))
			return
		}
	}

	sel := a.selector.Select(ctx, t, a.cfg.ParallelSelection && t.Origin == nil)
	for _, err := range sel.GuardFailures {
		a.logger.Debug("guard evaluation failed", zap.Stringer("trigger", t), zap.Error(err))
	}
	if !sel.Handled() {
		out.Unhandled = true
		if t.Type == domain.AddGoal {
			a.noApplicablePlan(ctx, t, in, out)
			return
		}
		a.logger.Debug("no plan for trigger", zap.Stringer("trigger", t))
		return
	}

	if parent != nil {
		c := sel.Chosen[0]
		in.Push(a.newFrame(c, t))
		out.Selected = append(out.Selected, c.Plan.Label())
		a.logger.Debug("sub-goal plan selected",
			zap.Stringer("trigger", t),
			zap.String("plan", c.Plan.Label()),
			zap.Stringer("intention", in.ID),
		)
		return
	}
	for _, c := range sel.Chosen {
		started := intention.New(a.newFrame(c, t))
		a.intentions.Add(started)
		out.Selected = append(out.Selected, c.Plan.Label())
		a.logger.Debug("plan selected",
			zap.Stringer("trigger", t),
			zap.String("plan", c.Plan.Label()),
			zap.Float64("degree", c.Value.Degree),
			zap.Stringer("intention", started.ID),
		)
	}
}

func (a *Agent) newFrame(c plan.Candidate, t domain.Trigger) *intention.Frame {
	a.library.RecordSelected(c.Plan.ID)
	return intention.NewFrame(a.intentions.NextFrameID(), c.Plan, t, c.Subst, c.Value)
}

// origin resolves the suspended frame a sub-goal trigger reports to.
func (a *Agent) origin(o domain.Origin) (*intention.Intention, *intention.Frame, bool) {
	in, ok := a.intentions.Get(o.Intention)
	if !ok {
		return nil, nil, false
	}
	top := in.Top()
	if top == nil || top.ID != o.Frame || top.State != intention.Suspended {
		return nil, nil, false
	}
	return in, top, true
}

func (a *Agent) noApplicablePlan(ctx context.Context, t domain.Trigger, in *intention.Intention, out *CycleOutcome) {
	goal := t.Literal
	failure := &domain.Failure{Kind: domain.NoApplicablePlan, Goal: &goal, Cause: domain.ErrNoApplicablePlan}
	if in == nil {
		if a.tryHandler(ctx, nil, goal, failure, out) {
			return
		}
		a.report(failure.Escalate(""), out)
		return
	}
	if a.tryHandler(ctx, in, goal, failure, out) {
		return
	}
	a.failFrame(ctx, in, failure, out)
}

// tryHandler looks for a -!goal plan. A handler found for a sub-goal is pushed
// on the waiting intention and reports to the same parent on completion;
// without an intention it starts a new one.
func (a *Agent) tryHandler(ctx context.Context, in *intention.Intention, goal domain.Literal, failure *domain.Failure, out *CycleOutcome) bool {
	t := domain.Trigger{Type: domain.RemoveGoal, Literal: goal, Cause: failure}
	sel := a.selector.Select(ctx, t, false)
	if !sel.Handled() {
		return false
	}
	c := sel.Chosen[0]
	f := a.newFrame(c, t)
	handled := goal
	f.Handles = &handled
	if in == nil {
		in = intention.New(f)
		a.intentions.Add(in)
	} else {
		in.Push(f)
	}
	out.Selected = append(out.Selected, c.Plan.Label())
	a.logger.Info("failure handled by plan",
		zap.String("goal", goal.String()),
		zap.String("plan", c.Plan.Label()),
		zap.Error(failure),
	)
	return true
}

// failFrame pops the failing top frame of in and unwinds: a failed goal frame
// is replaced by its -!goal handler when one applies, otherwise the failure
// propagates to the suspended parent. An emptied intention is discarded and
// reported.
func (a *Agent) failFrame(ctx context.Context, in *intention.Intention, failure *domain.Failure, out *CycleOutcome) {
	for {
		f := in.Pop()
		if f == nil {
			a.discard(in, failure, out)
			return
		}
		if f.Plan.Atomic {
			f.State = intention.Succeeded
			a.library.RecordOutcome(f.Plan.ID, true)
			a.logger.Debug("atomic plan failure ignored", zap.String("plan", f.Plan.Label()), zap.Error(failure))
			a.finish(in, f, out)
			return
		}
		f.State = intention.Failed
		a.library.RecordOutcome(f.Plan.ID, false)

		if f.Handles == nil && f.Trigger.Type == domain.AddGoal {
			if a.tryHandler(ctx, in, f.Goal(), failure, out) {
				return
			}
		}
		if in.Empty() {
			a.discard(in, failure, out)
			return
		}
		in.Top().Pending = nil
	}
}

func (a *Agent) discard(in *intention.Intention, failure *domain.Failure, out *CycleOutcome) {
	a.intentions.Remove(in.ID)
	a.report(failure.Escalate(in.ID.String()), out)
}

func (a *Agent) report(f *domain.Failure, out *CycleOutcome) {
	out.Failures = append(out.Failures, f)
	a.logger.Warn("unrecoverable failure", zap.Error(f))
}

// complete pops a finished top frame.
func (a *Agent) complete(in *intention.Intention, out *CycleOutcome) {
	f := in.Pop()
	f.State = intention.Succeeded
	a.library.RecordOutcome(f.Plan.ID, true)
	a.finish(in, f, out)
}

func (a *Agent) finish(in *intention.Intention, f *intention.Frame, out *CycleOutcome) {
	if parent := in.Top(); parent != nil {
		a.queue.Enqueue(domain.Trigger{
			Type:    domain.AddGoalAchieved,
			Literal: f.Goal(),
			Origin:  &domain.Origin{Intention: in.ID, Frame: parent.ID},
		})
		return
	}
	a.intentions.Remove(in.ID)
	goal := f.Trigger.Type.String() + f.Goal().String()
	out.Completed = append(out.Completed, goal)
	a.logger.Info("intention completed", zap.String("goal", goal), zap.Stringer("intention", in.ID))
}

// resume hands a finished subgoal's bindings back to the suspended frame
// that posted it.
func (a *Agent) resume(t domain.Trigger) {
	if t.Origin == nil {
		return
	}
	_, parent, ok := a.origin(*t.Origin)
	if !ok {
		a.logger.Debug("dropping stale goal notification", zap.Stringer("trigger", t))
		return
	}
	if parent.Pending != nil {
		if s, ok := unify.Literals(*parent.Pending, t.Literal, parent.Subst); ok {
			parent.Subst = s
		}
	}
	parent.Pending = nil
	parent.State = intention.Running
	parent.Advance()
}

// cancel removes every intention backing goal together with the queued
// triggers that would resume them or start the goal again.
func (a *Agent) cancel(goal domain.Literal, out *CycleOutcome) []*intention.Intention {
	removed := a.intentions.Cancel(goal)
	if len(removed) == 0 {
		return nil
	}
	ids := make(map[uuid.UUID]struct{}, len(removed))
	for _, in := range removed {
		ids[in.ID] = struct{}{}
		for _, f := range in.Frames() {
			a.library.RecordOutcome(f.Plan.ID, false)
		}
	}
	purged := a.queue.RemoveIf(func(t domain.Trigger) bool {
		if t.Origin != nil {
			_, ok := ids[t.Origin.Intention]
			return ok
		}
		if t.Type != domain.AddGoal {
			return false
		}
		_, ok := unify.Literals(goal, t.Literal, domain.EmptySubstitution())
		return ok
	})
	for _, in := range removed {
		if out != nil {
			out.Cancelled = append(out.Cancelled, in.ID.String())
		}
		a.logger.Info("intention cancelled", zap.String("goal", goal.String()), zap.Stringer("intention", in.ID))
	}
	a.logger.Debug("cancellation purged queued triggers", zap.Int("purged", purged))
	return removed
}
