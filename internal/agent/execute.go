package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/intention"
	"github.com/Harshitk-cp/agentspeak/internal/plan"
	"github.com/Harshitk-cp/agentspeak/internal/unify"
)

var errTestFailed = errors.New("test goal has no solution")

func (a *Agent) execute(ctx context.Context, in *intention.Intention, out *CycleOutcome) {
	f := in.Top()
	f.State = intention.Running

	instr, ok := f.Current()
	if !ok {
		if f.Depth() > 1 {
			out.Instruction = "end of block"
			if failure := a.endBlock(ctx, f); failure != nil {
				a.failFrame(ctx, in, failure, out)
			}
			return
		}
		a.complete(in, out)
		return
	}

	out.Instruction = instr.String()
	a.logger.Debug("executing instruction",
		zap.String("instruction", out.Instruction),
		zap.String("plan", f.Plan.Label()),
		zap.Stringer("intention", in.ID),
	)
	if failure := a.run(ctx, in, f, instr, out); failure != nil {
		a.failFrame(ctx, in, failure, out)
	}
}

func (a *Agent) run(ctx context.Context, in *intention.Intention, f *intention.Frame, instr *domain.Instruction, out *CycleOutcome) *domain.Failure {
	switch instr.Kind {
	case domain.InstrAddBelief:
		lit := f.Subst.ApplyLiteral(instr.Literal)
		t, err := a.beliefs.Add(domain.NewBelief(lit, domain.SourceDerived))
		if err != nil {
			return a.failure(f, domain.InvalidInstruction, err)
		}
		a.queue.Enqueue(t)
		f.Advance()

	case domain.InstrRemoveBelief:
		lit := f.Subst.ApplyLiteral(instr.Literal)
		if t, ok := a.beliefs.Remove(lit); ok {
			if s, ok := unify.Literals(lit, t.Literal, f.Subst); ok {
				f.Subst = s
			}
			a.queue.Enqueue(t)
		}
		f.Advance()

	case domain.InstrAchieve:
		goal := f.Subst.ApplyLiteral(instr.Literal)
		f.Pending = &goal
		f.State = intention.Suspended
		a.queue.Enqueue(domain.Trigger{
			Type:    domain.AddGoal,
			Literal: a.renamer.Literal(goal),
			Origin:  &domain.Origin{Intention: in.ID, Frame: f.ID},
		})

	case domain.InstrSpawn:
		a.queue.Enqueue(domain.NewTrigger(domain.AddGoal, f.Subst.ApplyLiteral(instr.Literal)))
		f.Advance()

	case domain.InstrDrop:
		goal := f.Subst.ApplyLiteral(instr.Literal)
		f.Advance()
		a.enqueue(domain.NewTrigger(domain.RemoveGoal, goal), out)

	case domain.InstrTest:
		sol, ok := a.evaluator.First(ctx, instr.Cond, f.Subst)
		if !ok {
			if sol.Value.Err != nil {
				return a.failure(f, domain.GuardEvaluationFailure, sol.Value.Err)
			}
			return a.failure(f, domain.UnificationFailure, fmt.Errorf("%w: %s", errTestFailed, instr.Cond))
		}
		f.Subst = sol.Subst
		f.Advance()

	case domain.InstrAction:
		value, s := a.evaluator.Call(ctx, instr.Call, f.Subst)
		if value.Failed() {
			if value.Err != nil {
				return a.failure(f, domain.ActionExecutionError, value.Err)
			}
			failure := a.failure(f, domain.ActionDeclined, nil)
			failure.Detail = "action " + instr.Call.Name.String() + " returned false"
			return failure
		}
		f.Subst = s
		f.Advance()

	case domain.InstrAssign:
		v, err := plan.EvalOperand(instr.Value, f.Subst)
		if err != nil {
			return a.failure(f, domain.InvalidInstruction, err)
		}
		f.Subst = assign(f.Subst, instr.Var, v)
		f.Advance()

	case domain.InstrIf:
		sol, ok := a.evaluator.First(ctx, instr.Cond, f.Subst)
		branch := instr.Else
		if ok {
			f.Subst = sol.Subst
			branch = instr.Then
		} else if sol.Value.Err != nil {
			return a.failure(f, domain.GuardEvaluationFailure, sol.Value.Err)
		}
		if len(branch) == 0 {
			f.Advance()
			return nil
		}
		f.Enter(branch, nil)

	case domain.InstrWhile:
		sol, ok := a.evaluator.First(ctx, instr.Cond, f.Subst)
		if !ok {
			if sol.Value.Err != nil {
				return a.failure(f, domain.GuardEvaluationFailure, sol.Value.Err)
			}
			f.Advance()
			return nil
		}
		keep := f.Subst.Names()
		f.Subst = sol.Subst
		f.Enter(instr.Then, &intention.Loop{Instr: instr, Keep: keep, Iterations: 1})

	case domain.InstrForEach:
		v, err := plan.EvalOperand(instr.Value, f.Subst)
		if err != nil {
			return a.failure(f, domain.InvalidInstruction, err)
		}
		list, ok := v.(domain.List)
		if !ok {
			return a.failure(f, domain.InvalidInstruction, fmt.Errorf("foreach over %s, which is not a list", v))
		}
		if len(list.Items) == 0 {
			f.Advance()
			return nil
		}
		keep := f.Subst.Names()
		f.Subst = f.Subst.Rebind(instr.Var, list.Items[0])
		f.Enter(instr.Then, &intention.Loop{Instr: instr, Items: list.Items, Keep: keep, Iterations: 1})

	case domain.InstrFail:
		reason := instr.Reason
		if reason == "" {
			reason = "fail"
		}
		return a.failure(f, domain.UserRaisedFailure, errors.New(reason))

	default:
		return a.failure(f, domain.InvalidInstruction, fmt.Errorf("unknown instruction kind %d", instr.Kind))
	}
	return nil
}

// endBlock handles an exhausted nested block: loops re-check their condition
// or take the next element, other blocks return to the enclosing one.
// Each new iteration starts from the bindings that existed at loop entry,
// carrying over their current values.
func (a *Agent) endBlock(ctx context.Context, f *intention.Frame) *domain.Failure {
	b := f.Top()
	loop := b.Loop
	if loop == nil {
		f.Leave()
		return nil
	}
	if loop.Iterations >= a.cfg.MaxLoopIterations {
		return a.failure(f, domain.InvalidInstruction, fmt.Errorf("%w (%d)", domain.ErrLoopLimit, a.cfg.MaxLoopIterations))
	}
	base := f.Subst.Restrict(loop.Keep)

	switch loop.Instr.Kind {
	case domain.InstrWhile:
		sol, ok := a.evaluator.First(ctx, loop.Instr.Cond, base)
		if !ok {
			if sol.Value.Err != nil {
				return a.failure(f, domain.GuardEvaluationFailure, sol.Value.Err)
			}
			f.Subst = base
			f.Leave()
			return nil
		}
		f.Subst = sol.Subst
	case domain.InstrForEach:
		loop.Index++
		if loop.Index >= len(loop.Items) {
			f.Subst = base
			f.Leave()
			return nil
		}
		f.Subst = base.Rebind(loop.Instr.Var, loop.Items[loop.Index])
	default:
		f.Leave()
		return nil
	}
	loop.Iterations++
	b.PC = 0
	return nil
}

// assign writes v to name. When name is linked to a still unbound variable,
// for instance the renamed variable of a posted sub-goal, that variable is
// bound instead so the value flows back to the goal's poster.
func assign(s domain.Substitution, name string, v domain.Term) domain.Substitution {
	if target, ok := s.Walk(domain.Var(name)).(domain.Variable); ok && target.Name != name && !target.Anonymous() {
		return s.Bind(target.Name, v)
	}
	return s.Rebind(name, v)
}

func (a *Agent) failure(f *intention.Frame, kind domain.FailureKind, cause error) *domain.Failure {
	failure := &domain.Failure{Kind: kind, Plan: f.Plan.Label(), Cause: cause}
	if f.Trigger.Type.IsGoal() {
		g := f.Goal()
		failure.Goal = &g
	}
	return failure
}
