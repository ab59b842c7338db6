package action

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// parallelChunk is the smallest slice summed by one goroutine when the
// parallel hint is set.
const parallelChunk = 1024

// Builtins returns a registry preloaded with the generic, math, storage,
// collection and agent actions.
func Builtins(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	r.RegisterFunc("generic/print", r.print)
	r.RegisterFunc("generic/uuid", genUUID)
	r.RegisterFunc("math/sum", sum)
	r.RegisterFunc("math/min", extremum(math.Min))
	r.RegisterFunc("math/max", extremum(math.Max))
	r.RegisterFunc("math/abs", abs)
	r.RegisterFunc("storage/get", storageGet)
	r.RegisterFunc("storage/put", storagePut)
	r.RegisterFunc("storage/remove", storageRemove)
	r.RegisterFunc("storage/exists", storageExists)
	r.RegisterFunc("storage/clear", storageClear)
	r.RegisterFunc("collection/size", size)
	r.RegisterFunc("collection/get", get)
	r.RegisterFunc("collection/range", rangeList)
	r.RegisterFunc("agent/cycle", cycle)
	r.RegisterFunc("agent/sleep", sleep)
	return r
}

func (r *Registry) print(_ context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	parts := make([]string, len(inv.Args))
	for i, a := range inv.Args {
		parts[i] = text(a)
	}
	fields := []zap.Field{zap.String("message", strings.Join(parts, " "))}
	if inv.Agent != nil {
		fields = append(fields, zap.String("agent_id", inv.Agent.ID()))
	}
	r.logger.Info("print", fields...)
	return domain.Truth(true), nil
}

func genUUID(context.Context, domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	return domain.Truth(true), []domain.Term{domain.Str(uuid.NewString())}
}

func sum(ctx context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	xs, err := numbers(inv.Args)
	if err != nil {
		return domain.Failed(err), nil
	}
	if !inv.Parallel || len(xs) <= parallelChunk {
		return domain.Truth(true), []domain.Term{domain.Num(total(xs))}
	}

	chunks := (len(xs) + parallelChunk - 1) / parallelChunk
	partial := make([]float64, chunks)
	g, gctx := errgroup.WithContext(ctx)
	for i := range chunks {
		lo, hi := i*parallelChunk, min((i+1)*parallelChunk, len(xs))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partial[i] = total(xs[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Failed(err), nil
	}
	return domain.Truth(true), []domain.Term{domain.Num(total(partial))}
}

func total(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func extremum(pick func(a, b float64) float64) domain.ActionFunc {
	return func(_ context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
		xs, err := numbers(inv.Args)
		if err != nil {
			return domain.Failed(err), nil
		}
		if len(xs) == 0 {
			return badArgs("%s needs at least one number", inv.Name), nil
		}
		best := xs[0]
		for _, x := range xs[1:] {
			best = pick(best, x)
		}
		return domain.Truth(true), []domain.Term{domain.Num(best)}
	}
}

func abs(_ context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	if len(inv.Args) != 1 {
		return badArgs("math/abs takes one number"), nil
	}
	x, ok := number(inv.Args[0])
	if !ok {
		return badArgs("math/abs: %s is not a number", inv.Args[0]), nil
	}
	return domain.Truth(true), []domain.Term{domain.Num(math.Abs(x))}
}

func storageGet(ctx context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	s, v := storageOf(inv)
	if s == nil {
		return v, nil
	}
	if len(inv.Args) != 1 {
		return badArgs("storage/get takes one key"), nil
	}
	val, err := s.Get(ctx, text(inv.Args[0]))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return domain.Truth(false), nil
	}
	if err != nil {
		return domain.Failed(err), nil
	}
	return domain.Truth(true), []domain.Term{val}
}

func storagePut(ctx context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	s, v := storageOf(inv)
	if s == nil {
		return v, nil
	}
	if len(inv.Args) != 2 {
		return badArgs("storage/put takes a key and a value"), nil
	}
	if err := s.Put(ctx, text(inv.Args[0]), inv.Args[1]); err != nil {
		return domain.Failed(err), nil
	}
	return domain.Truth(true), nil
}

func storageRemove(ctx context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	s, v := storageOf(inv)
	if s == nil {
		return v, nil
	}
	if len(inv.Args) != 1 {
		return badArgs("storage/remove takes one key"), nil
	}
	ok, err := s.Remove(ctx, text(inv.Args[0]))
	if err != nil {
		return domain.Failed(err), nil
	}
	return domain.Truth(true), []domain.Term{domain.Bool(ok)}
}

func storageExists(ctx context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	s, v := storageOf(inv)
	if s == nil {
		return v, nil
	}
	if len(inv.Args) != 1 {
		return badArgs("storage/exists takes one key"), nil
	}
	ok, err := s.Exists(ctx, text(inv.Args[0]))
	if err != nil {
		return domain.Failed(err), nil
	}
	return domain.Truth(ok), nil
}

func storageClear(ctx context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	s, v := storageOf(inv)
	if s == nil {
		return v, nil
	}
	keys := make([]string, 0, len(inv.Args))
	for _, a := range flatten(inv.Args) {
		keys = append(keys, text(a))
	}
	if err := s.Clear(ctx, keys...); err != nil {
		return domain.Failed(err), nil
	}
	return domain.Truth(true), nil
}

func size(_ context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	if len(inv.Args) != 1 {
		return badArgs("collection/size takes one collection"), nil
	}
	switch x := inv.Args[0].(type) {
	case domain.List:
		return domain.Truth(true), []domain.Term{domain.Num(float64(len(x.Items)))}
	case domain.Constant:
		if s, ok := x.Text(); ok {
			return domain.Truth(true), []domain.Term{domain.Num(float64(len([]rune(s))))}
		}
	}
	return badArgs("collection/size: %s is not a list or string", inv.Args[0]), nil
}

func get(_ context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	if len(inv.Args) != 2 {
		return badArgs("collection/get takes a list and an index"), nil
	}
	l, ok := inv.Args[0].(domain.List)
	if !ok {
		return badArgs("collection/get: %s is not a list", inv.Args[0]), nil
	}
	f, ok := number(inv.Args[1])
	if !ok || f != math.Trunc(f) {
		return badArgs("collection/get: %s is not an index", inv.Args[1]), nil
	}
	i := int(f)
	if i < 0 || i >= len(l.Items) {
		return badArgs("collection/get: index %d out of range [0,%d)", i, len(l.Items)), nil
	}
	return domain.Truth(true), []domain.Term{l.Items[i]}
}

// rangeList returns the half-open integer range [from, to) with an optional
// step.
func rangeList(_ context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	if len(inv.Args) < 2 || len(inv.Args) > 3 {
		return badArgs("collection/range takes from, to and an optional step"), nil
	}
	xs, err := numbers(inv.Args)
	if err != nil {
		return domain.Failed(err), nil
	}
	from, to, step := xs[0], xs[1], 1.0
	if len(xs) == 3 {
		step = xs[2]
	}
	if step == 0 || math.IsNaN(step) {
		return badArgs("collection/range: step must not be zero"), nil
	}
	var items []domain.Term
	for x := from; (step > 0 && x < to) || (step < 0 && x > to); x += step {
		items = append(items, domain.Num(x))
	}
	return domain.Truth(true), []domain.Term{domain.NewList(items...)}
}

func cycle(_ context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	if inv.Agent == nil {
		return badArgs("agent/cycle needs an agent"), nil
	}
	return domain.Truth(true), []domain.Term{domain.Num(float64(inv.Agent.Cycle()))}
}

// sleep suspends the calling agent for n steps, or until woken when no
// count is given.
func sleep(_ context.Context, inv domain.Invocation) (domain.FuzzyValue, []domain.Term) {
	if inv.Agent == nil {
		return badArgs("agent/sleep needs an agent"), nil
	}
	n := 0
	if len(inv.Args) > 0 {
		f, ok := number(inv.Args[0])
		if !ok {
			return badArgs("agent/sleep: %s is not a number", inv.Args[0]), nil
		}
		n = int(f)
	}
	inv.Agent.Sleep(n)
	return domain.Truth(true), nil
}

func storageOf(inv domain.Invocation) (domain.Storage, domain.FuzzyValue) {
	if inv.Agent == nil || inv.Agent.Storage() == nil {
		return nil, badArgs("%s needs agent storage", inv.Name)
	}
	return inv.Agent.Storage(), domain.FuzzyValue{}
}

// flatten expands a single list argument into its items.
func flatten(args []domain.Term) []domain.Term {
	if len(args) == 1 {
		if l, ok := args[0].(domain.List); ok {
			return l.Items
		}
	}
	return args
}

func numbers(args []domain.Term) ([]float64, error) {
	items := flatten(args)
	xs := make([]float64, len(items))
	for i, a := range items {
		f, ok := number(a)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a number", ErrBadArguments, a)
		}
		xs[i] = f
	}
	return xs, nil
}

func number(t domain.Term) (float64, bool) {
	c, ok := t.(domain.Constant)
	if !ok {
		return 0, false
	}
	return c.Number()
}

// text renders a term as a plain string: strings lose their quotes and atoms
// become their functor.
func text(t domain.Term) string {
	switch x := t.(type) {
	case domain.Constant:
		if s, ok := x.Text(); ok {
			return s
		}
	case domain.Literal:
		if x.Arity() == 0 && len(x.Annotations) == 0 && !x.Negated {
			return x.Functor.String()
		}
	}
	return t.String()
}
