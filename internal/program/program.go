// Package program loads compiled agent programs from their YAML form: the
// initial beliefs, goals and rules plus the plan library.
package program

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

var ErrInvalidProgram = errors.New("invalid program")

// Load decodes and compiles one program.
func Load(r io.Reader) (*domain.Program, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidProgram)
		}
		return nil, fmt.Errorf("%w: parse YAML: %v", ErrInvalidProgram, err)
	}
	return compile(doc)
}

// Parse is Load over a byte slice.
func Parse(data []byte) (*domain.Program, error) {
	return Load(bytes.NewReader(data))
}

// LoadFile loads a program file. The program name defaults to the file name
// without its extension.
func LoadFile(path string) (*domain.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open program: %w", err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = Name(path)
	}
	return p, nil
}

// Files lists the .yaml and .yml files in dir, sorted by file name.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read programs dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDir loads every program returned by Files.
func LoadDir(dir string) ([]*domain.Program, error) {
	paths, err := Files(dir)
	if err != nil {
		return nil, err
	}
	programs := make([]*domain.Program, 0, len(paths))
	for _, path := range paths {
		p, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, nil
}

// Name returns the agent name derived from a program file path.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func compile(doc document) (*domain.Program, error) {
	p := &domain.Program{Name: doc.Name}
	for i, s := range doc.Beliefs {
		lit, err := domain.ParseLiteral(s)
		if err != nil {
			return nil, invalid("belief %d: %v", i, err)
		}
		if !lit.IsGround() {
			return nil, invalid("belief %d: %s is not ground", i, lit)
		}
		p.Beliefs = append(p.Beliefs, domain.NewBelief(lit, domain.SourceInitial))
	}
	for i, s := range doc.Goals {
		lit, err := domain.ParseLiteral(s)
		if err != nil {
			return nil, invalid("goal %d: %v", i, err)
		}
		p.Goals = append(p.Goals, lit)
	}
	for i, r := range doc.Rules {
		rule, err := compileRule(r)
		if err != nil {
			return nil, invalid("rule %d: %v", i, err)
		}
		p.Rules = append(p.Rules, rule)
	}
	for i, ps := range doc.Plans {
		pl, err := compilePlan(ps)
		if err != nil {
			label := ps.Name
			if label == "" {
				label = ps.Trigger
			}
			return nil, invalid("plan %d (%s): %v", i, label, err)
		}
		p.Plans = append(p.Plans, pl)
	}
	return p, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidProgram, fmt.Sprintf(format, args...))
}

func compileRule(r ruleSpec) (domain.Rule, error) {
	head, err := domain.ParseLiteral(r.Head)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("head: %w", err)
	}
	rule := domain.Rule{Head: head}
	if r.Body != nil {
		body, err := compileExpr(*r.Body)
		if err != nil {
			return domain.Rule{}, fmt.Errorf("body: %w", err)
		}
		rule.Body = &body
	}
	return rule, nil
}

func compilePlan(ps planSpec) (domain.Plan, error) {
	tt, pattern, err := domain.ParseTrigger(ps.Trigger)
	if err != nil {
		return domain.Plan{}, err
	}
	pl := domain.Plan{
		Name:     ps.Name,
		Trigger:  tt,
		Pattern:  pattern,
		Priority: ps.Priority,
		Atomic:   ps.Atomic,
	}
	if ps.Guard != nil {
		g, err := compileExpr(*ps.Guard)
		if err != nil {
			return domain.Plan{}, fmt.Errorf("guard: %w", err)
		}
		pl.Guard = &g
	}
	if pl.Body, err = compileBody(ps.Body); err != nil {
		return domain.Plan{}, err
	}
	if len(ps.Annotations) > 0 {
		pl.Annotations = make(map[string]domain.Term, len(ps.Annotations))
		for k, v := range ps.Annotations {
			t, err := domain.ParseTerm(v)
			if err != nil {
				return domain.Plan{}, fmt.Errorf("annotation %s: %w", k, err)
			}
			pl.Annotations[k] = t
		}
	}
	return pl, nil
}

func compileExpr(e exprSpec) (domain.Expr, error) {
	if e.Scalar != nil {
		s := strings.TrimSpace(*e.Scalar)
		switch {
		case s == "true":
			return domain.True(), nil
		case s == "false":
			return domain.False(), nil
		case strings.HasPrefix(s, "$"):
			lit, err := domain.ParseLiteral(s[1:])
			if err != nil {
				return domain.Expr{}, err
			}
			return domain.RuleExpr(lit), nil
		}
		lit, err := domain.ParseLiteral(s)
		if err != nil {
			return domain.Expr{}, err
		}
		return domain.BeliefExpr(lit), nil
	}

	var (
		out domain.Expr
		set int
	)
	if e.Value != nil {
		set++
		out = domain.False()
		if *e.Value {
			out = domain.True()
		}
	}
	if e.Belief != "" {
		set++
		lit, err := domain.ParseLiteral(e.Belief)
		if err != nil {
			return domain.Expr{}, err
		}
		out = domain.BeliefExpr(lit)
	}
	if e.Rule != "" {
		set++
		lit, err := domain.ParseLiteral(e.Rule)
		if err != nil {
			return domain.Expr{}, err
		}
		out = domain.RuleExpr(lit)
	}
	if e.All != nil {
		set++
		children, err := compileExprs(e.All)
		if err != nil {
			return domain.Expr{}, err
		}
		out = domain.And(children...)
	}
	if e.Any != nil {
		set++
		children, err := compileExprs(e.Any)
		if err != nil {
			return domain.Expr{}, err
		}
		out = domain.Or(children...)
	}
	if e.Not != nil {
		set++
		child, err := compileExpr(*e.Not)
		if err != nil {
			return domain.Expr{}, err
		}
		out = domain.Not(child)
	}
	if e.Compare != nil {
		set++
		op := domain.CompareOp(e.Compare.Op)
		if !op.Valid() {
			return domain.Expr{}, fmt.Errorf("unknown comparison %q", e.Compare.Op)
		}
		l, r, err := compileOperands(e.Compare.Left, e.Compare.Right)
		if err != nil {
			return domain.Expr{}, err
		}
		out = domain.Compare(op, l, r)
	}
	if e.Unify != nil {
		set++
		l, r, err := compileOperands(e.Unify.Left, e.Unify.Right)
		if err != nil {
			return domain.Expr{}, err
		}
		out = domain.UnifyExpr(l, r)
	}
	if e.Action != nil {
		set++
		call, err := compileCall(*e.Action)
		if err != nil {
			return domain.Expr{}, err
		}
		out = domain.ActionExpr(call)
	}
	if set != 1 {
		return domain.Expr{}, fmt.Errorf("expression must set exactly one of value, belief, rule, all, any, not, compare, unify, action (got %d)", set)
	}
	return out, nil
}

func compileExprs(specs []exprSpec) ([]domain.Expr, error) {
	out := make([]domain.Expr, len(specs))
	for i, s := range specs {
		e, err := compileExpr(s)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func compileOperands(l, r operandSpec) (domain.Operand, domain.Operand, error) {
	left, err := compileOperand(l)
	if err != nil {
		return domain.Operand{}, domain.Operand{}, err
	}
	right, err := compileOperand(r)
	if err != nil {
		return domain.Operand{}, domain.Operand{}, err
	}
	return left, right, nil
}

func compileOperand(o operandSpec) (domain.Operand, error) {
	if !o.set {
		return domain.Operand{}, errors.New("missing operand")
	}
	if o.Op == "" {
		t, err := domain.ParseTerm(o.Term)
		if err != nil {
			return domain.Operand{}, err
		}
		return domain.Value(t), nil
	}
	op := domain.ArithOp(o.Op)
	if !op.Valid() {
		return domain.Operand{}, fmt.Errorf("unknown arithmetic operator %q", o.Op)
	}
	if o.Left == nil || o.Right == nil {
		return domain.Operand{}, fmt.Errorf("operator %s needs left and right", o.Op)
	}
	l, r, err := compileOperands(*o.Left, *o.Right)
	if err != nil {
		return domain.Operand{}, err
	}
	return domain.Arith(op, l, r), nil
}

func compileCall(a actionSpec) (domain.ActionCall, error) {
	if a.Name == "" {
		return domain.ActionCall{}, errors.New("action without name")
	}
	call := domain.ActionCall{Name: domain.ParsePath(a.Name), Parallel: a.Parallel}
	for _, s := range a.Args {
		t, err := domain.ParseTerm(s)
		if err != nil {
			return domain.ActionCall{}, fmt.Errorf("action %s: %w", a.Name, err)
		}
		call.Args = append(call.Args, t)
	}
	for _, s := range a.Returns {
		t, err := domain.ParseTerm(s)
		if err != nil {
			return domain.ActionCall{}, fmt.Errorf("action %s: %w", a.Name, err)
		}
		call.Returns = append(call.Returns, t)
	}
	return call, nil
}

func compileBody(specs []instrSpec) ([]domain.Instruction, error) {
	out := make([]domain.Instruction, 0, len(specs))
	for i, s := range specs {
		in, err := compileInstr(s)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func compileInstr(s instrSpec) (domain.Instruction, error) {
	var (
		out domain.Instruction
		set int
	)
	literal := func(kind domain.InstructionKind, src *string) error {
		if src == nil {
			return nil
		}
		set++
		lit, err := domain.ParseLiteral(*src)
		if err != nil {
			return err
		}
		out = domain.Instruction{Kind: kind, Literal: lit}
		return nil
	}
	for _, c := range []struct {
		kind domain.InstructionKind
		src  *string
	}{
		{domain.InstrAddBelief, s.Add},
		{domain.InstrRemoveBelief, s.Remove},
		{domain.InstrAchieve, s.Achieve},
		{domain.InstrSpawn, s.Spawn},
		{domain.InstrDrop, s.Drop},
	} {
		if err := literal(c.kind, c.src); err != nil {
			return domain.Instruction{}, err
		}
	}

	if s.Test != nil {
		set++
		cond, err := compileExpr(*s.Test)
		if err != nil {
			return domain.Instruction{}, err
		}
		out = domain.Instruction{Kind: domain.InstrTest, Cond: cond}
	}
	if s.Action != nil {
		set++
		call, err := compileCall(*s.Action)
		if err != nil {
			return domain.Instruction{}, err
		}
		out = domain.Instruction{Kind: domain.InstrAction, Call: call}
	}
	if s.Assign != nil {
		set++
		if !isVariable(s.Assign.Var) {
			return domain.Instruction{}, fmt.Errorf("assign target %q is not a variable", s.Assign.Var)
		}
		v, err := compileOperand(s.Assign.Value)
		if err != nil {
			return domain.Instruction{}, err
		}
		out = domain.Instruction{Kind: domain.InstrAssign, Var: s.Assign.Var, Value: v}
	}
	if s.If != nil {
		set++
		cond, err := compileExpr(s.If.Cond)
		if err != nil {
			return domain.Instruction{}, err
		}
		then, err := compileBody(s.If.Then)
		if err != nil {
			return domain.Instruction{}, fmt.Errorf("then: %w", err)
		}
		els, err := compileBody(s.If.Else)
		if err != nil {
			return domain.Instruction{}, fmt.Errorf("else: %w", err)
		}
		out = domain.Instruction{Kind: domain.InstrIf, Cond: cond, Then: then, Else: els}
	}
	if s.While != nil {
		set++
		cond, err := compileExpr(s.While.Cond)
		if err != nil {
			return domain.Instruction{}, err
		}
		body, err := compileBody(s.While.Do)
		if err != nil {
			return domain.Instruction{}, fmt.Errorf("do: %w", err)
		}
		out = domain.Instruction{Kind: domain.InstrWhile, Cond: cond, Then: body}
	}
	if s.ForEach != nil {
		set++
		if !isVariable(s.ForEach.Var) {
			return domain.Instruction{}, fmt.Errorf("foreach variable %q is not a variable", s.ForEach.Var)
		}
		list, err := compileOperand(s.ForEach.In)
		if err != nil {
			return domain.Instruction{}, err
		}
		body, err := compileBody(s.ForEach.Do)
		if err != nil {
			return domain.Instruction{}, fmt.Errorf("do: %w", err)
		}
		out = domain.Instruction{Kind: domain.InstrForEach, Var: s.ForEach.Var, Value: list, Then: body}
	}
	if s.Fail != nil {
		set++
		out = domain.Instruction{Kind: domain.InstrFail, Reason: *s.Fail}
	}
	if set != 1 {
		return domain.Instruction{}, fmt.Errorf("instruction must set exactly one kind (got %d)", set)
	}
	return out, nil
}

func isVariable(name string) bool {
	t, err := domain.ParseTerm(name)
	if err != nil {
		return false
	}
	v, ok := t.(domain.Variable)
	return ok && !v.Anonymous()
}
