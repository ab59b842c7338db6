// Package agent implements the reasoning cycle that ties the belief base,
// trigger queue, plan library and intention stacks of one agent together.
package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/agentspeak/internal/beliefbase"
	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/event"
	"github.com/Harshitk-cp/agentspeak/internal/intention"
	"github.com/Harshitk-cp/agentspeak/internal/plan"
	"github.com/Harshitk-cp/agentspeak/internal/store"
	"github.com/Harshitk-cp/agentspeak/internal/unify"
)

var ErrNilProgram = errors.New("agent program is nil")

// WakeUpGoal is posted when a sleeping agent wakes and a plan handles it.
var WakeUpGoal = domain.Atom("wakeup")

// Agent is a single-threaded reasoning engine. None of its methods may be
// called concurrently; hosts serialise access per agent.
type Agent struct {
	id       string
	cfg      Config
	logger   *zap.Logger
	observer Observer

	beliefs    *beliefbase.BeliefBase
	queue      *event.Queue
	library    *plan.Library
	evaluator  *plan.Evaluator
	selector   *plan.Selector
	intentions *intention.Set
	storage    domain.Storage
	actions    domain.Action
	renamer    unify.Renamer

	cycle     uint64
	sleeping  bool
	sleepLeft int
}

type Option func(*Agent)

func WithID(id string) Option {
	return func(a *Agent) { a.id = id }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithObserver(o Observer) Option {
	return func(a *Agent) {
		if o != nil {
			a.observer = o
		}
	}
}

// WithStorage sets the scratchpad exposed to plans and actions. An in-memory
// store is used by default.
func WithStorage(s domain.Storage) Option {
	return func(a *Agent) { a.storage = s }
}

// WithActions sets the action dispatcher, usually an action.Registry.
func WithActions(actions domain.Action) Option {
	return func(a *Agent) { a.actions = actions }
}

// New builds an agent from a compiled program. Initial beliefs are stored
// without posting events; initial goals are queued in order.
func New(p *domain.Program, cfg Config, opts ...Option) (*Agent, error) {
	if p == nil {
		return nil, ErrNilProgram
	}
	cfg = cfg.withDefaults()
	lib, err := plan.NewLibrary(p.Plans, p.Rules)
	if err != nil {
		return nil, fmt.Errorf("load plan library: %w", err)
	}

	a := &Agent{
		id:         uuid.NewString(),
		cfg:        cfg,
		logger:     zap.NewNop(),
		observer:   nopObserver{},
		library:    lib,
		intentions: intention.NewSet(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.storage == nil {
		a.storage = store.NewMemoryStorage()
	}
	a.logger = a.logger.With(zap.String("agent_id", a.id))

	var bopts []beliefbase.Option
	if cfg.AllowDuplicates {
		bopts = append(bopts, beliefbase.AllowDuplicates())
	}
	a.beliefs = beliefbase.New(bopts...)

	var qopts []event.Option
	if cfg.PriorityQueue {
		qopts = append(qopts, event.WithPriority())
	}
	a.queue = event.NewQueue(qopts...)

	a.evaluator = &plan.Evaluator{
		Beliefs:      a.beliefs,
		Rules:        lib,
		Invoker:      invoker{a},
		Aggregation:  cfg.GuardAggregation,
		MaxRuleDepth: cfg.MaxRuleDepth,
	}
	a.selector = &plan.Selector{
		Library:   lib,
		Evaluator: a.evaluator,
		Rank:      cfg.RankAggregation,
		Threshold: cfg.Threshold,
	}

	for _, b := range p.Beliefs {
		if b.Source == "" {
			b.Source = domain.SourceInitial
		}
		if _, err := a.beliefs.Add(b); err != nil {
			return nil, fmt.Errorf("initial belief: %w", err)
		}
	}
	for _, g := range p.Goals {
		a.queue.Enqueue(domain.NewTrigger(domain.AddGoal, g))
	}

	a.logger.Debug("agent created",
		zap.Int("plans", lib.Len()),
		zap.Int("beliefs", a.beliefs.Len()),
		zap.Int("goals", len(p.Goals)),
	)
	return a, nil
}

func (a *Agent) ID() string { return a.id }

func (a *Agent) Cycle() uint64 { return a.cycle }

func (a *Agent) Storage() domain.Storage { return a.storage }

// Sleep suspends reasoning for the given number of steps, or until WakeUp
// when steps is not positive.
func (a *Agent) Sleep(steps int) {
	a.sleeping = true
	a.sleepLeft = max(steps, 0)
	a.logger.Debug("agent sleeping", zap.Int("steps", steps))
}

// WakeUp ends a sleep early.
func (a *Agent) WakeUp() {
	if a.sleeping {
		a.wake()
	}
}

func (a *Agent) Sleeping() bool { return a.sleeping }

func (a *Agent) wake() {
	a.sleeping = false
	a.sleepLeft = 0
	if a.library.Has(domain.AddGoal, WakeUpGoal) {
		a.queue.Enqueue(domain.NewTrigger(domain.AddGoal, WakeUpGoal))
	}
	a.logger.Debug("agent woke up")
}

// Perceive adds a percept to the belief base and queues its event.
func (a *Agent) Perceive(l domain.Literal) error {
	t, err := a.beliefs.Add(domain.NewBelief(l, domain.SourcePercept))
	if err != nil {
		return err
	}
	a.queue.Enqueue(t)
	return nil
}

// Forget removes a belief unifying with l and queues the removal event.
func (a *Agent) Forget(l domain.Literal) bool {
	t, ok := a.beliefs.Remove(l)
	if ok {
		a.queue.Enqueue(t)
	}
	return ok
}

// Post queues a top-level achievement goal.
func (a *Agent) Post(goal domain.Literal) {
	a.queue.Enqueue(domain.NewTrigger(domain.AddGoal, goal))
}

// Drop cancels every intention pursuing a goal unifying with goal and
// withdraws matching goals that were posted but not yet started. When neither
// exists the removal is queued for -!goal plans. It returns the number of
// intentions cancelled plus posted goals withdrawn.
func (a *Agent) Drop(goal domain.Literal) int {
	return a.enqueue(domain.NewTrigger(domain.RemoveGoal, goal), nil)
}

// Enqueue delivers an arbitrary trigger. Goal removals for active goals take
// effect immediately.
func (a *Agent) Enqueue(t domain.Trigger) {
	a.enqueue(t, nil)
}

func (a *Agent) enqueue(t domain.Trigger, out *CycleOutcome) int {
	if t.Type == domain.RemoveGoal {
		if n := len(a.cancel(t.Literal, out)) + a.withdraw(t.Literal); n > 0 {
			return n
		}
	}
	a.queue.Enqueue(t)
	return 0
}

// withdraw removes queued top-level posts of goal that no intention has
// picked up yet.
func (a *Agent) withdraw(goal domain.Literal) int {
	n := a.queue.RemoveIf(func(t domain.Trigger) bool {
		if t.Type != domain.AddGoal || t.Origin != nil {
			return false
		}
		_, ok := unify.Literals(goal, t.Literal, domain.EmptySubstitution())
		return ok
	})
	if n > 0 {
		a.logger.Info("posted goal withdrawn", zap.String("goal", goal.String()), zap.Int("count", n))
	}
	return n
}

// Query runs a belief query against the current belief base.
func (a *Agent) Query(pattern domain.Literal) iter.Seq2[domain.Belief, domain.Substitution] {
	return a.beliefs.Query(pattern, domain.EmptySubstitution())
}

func (a *Agent) Beliefs() []domain.Belief { return a.beliefs.All() }

func (a *Agent) Pending() []domain.Trigger { return a.queue.Pending() }

func (a *Agent) Intentions() int { return a.intentions.Len() }

// RunResult summarises a Run.
type RunResult struct {
	Steps     int
	Completed []string
	Failures  []*domain.Failure
}

// Run steps the agent until a step is idle, maxSteps steps have run or ctx is
// done. A sleeping agent keeps stepping until it wakes.
func (a *Agent) Run(ctx context.Context, maxSteps int) RunResult {
	var res RunResult
	for res.Steps < maxSteps && ctx.Err() == nil {
		out := a.Step(ctx)
		res.Steps++
		res.Completed = append(res.Completed, out.Completed...)
		res.Failures = append(res.Failures, out.Failures...)
		if out.Idle {
			break
		}
		if out.Sleeping && a.sleepLeft == 0 && a.sleeping {
			break
		}
	}
	return res
}

type invoker struct{ a *Agent }

func (i invoker) Invoke(ctx context.Context, name domain.Path, args []domain.Term, parallel bool) (domain.FuzzyValue, []domain.Term) {
	a := i.a
	start := time.Now()
	var (
		value    domain.FuzzyValue
		returned []domain.Term
	)
	if a.actions == nil {
		value = domain.Failed(fmt.Errorf("%w: %s", domain.ErrUnknownAction, name))
	} else {
		value, returned = a.actions.Invoke(ctx, domain.Invocation{
			Name:     name,
			Args:     args,
			Parallel: parallel,
			Agent:    a,
		})
	}
	took := time.Since(start)
	a.observer.ActionInvoked(a.id, name.String(), value, took)
	a.logger.Debug("action invoked",
		zap.String("action", name.String()),
		zap.Stringer("value", value),
		zap.Duration("took", took),
	)
	return value, returned
}
