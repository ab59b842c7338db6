package plan

import (
	"fmt"
	"math"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// EvalOperand resolves an operand under s. Plain terms are returned with s
// applied; arithmetic nodes require numeric operands, except that + also
// concatenates two strings or two lists.
func EvalOperand(o domain.Operand, s domain.Substitution) (domain.Term, error) {
	if o.Op == domain.ArithNone {
		if o.Term == nil {
			return nil, fmt.Errorf("%w: empty operand", domain.ErrNotEvaluable)
		}
		return s.Apply(o.Term), nil
	}
	if o.Left == nil || o.Right == nil {
		return nil, fmt.Errorf("%w: %s is missing an operand", domain.ErrNotEvaluable, o.Op)
	}
	left, err := EvalOperand(*o.Left, s)
	if err != nil {
		return nil, err
	}
	right, err := EvalOperand(*o.Right, s)
	if err != nil {
		return nil, err
	}

	if o.Op == domain.ArithAdd {
		if ls, ok := text(left); ok {
			if rs, ok := text(right); ok {
				return domain.Str(ls + rs), nil
			}
		}
		if ll, ok := left.(domain.List); ok {
			if rl, ok := right.(domain.List); ok {
				items := make([]domain.Term, 0, len(ll.Items)+len(rl.Items))
				items = append(items, ll.Items...)
				items = append(items, rl.Items...)
				return domain.NewList(items...), nil
			}
		}
	}

	a, ok := number(left)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a number", domain.ErrNotEvaluable, left)
	}
	b, ok := number(right)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a number", domain.ErrNotEvaluable, right)
	}
	switch o.Op {
	case domain.ArithAdd:
		return domain.Num(a + b), nil
	case domain.ArithSub:
		return domain.Num(a - b), nil
	case domain.ArithMul:
		return domain.Num(a * b), nil
	case domain.ArithDiv:
		if b == 0 {
			return nil, fmt.Errorf("%w: division by zero", domain.ErrNotEvaluable)
		}
		return domain.Num(a / b), nil
	case domain.ArithMod:
		if b == 0 {
			return nil, fmt.Errorf("%w: modulo by zero", domain.ErrNotEvaluable)
		}
		return domain.Num(math.Mod(a, b)), nil
	case domain.ArithPow:
		return domain.Num(math.Pow(a, b)), nil
	}
	return nil, fmt.Errorf("%w: unknown operator %q", domain.ErrNotEvaluable, o.Op)
}

// Compare applies a relational operator. == and != compare any terms
// structurally; ordering operators need two numbers or two strings.
func Compare(op domain.CompareOp, left, right domain.Term) (bool, error) {
	switch op {
	case domain.OpEq:
		return domain.Equal(left, right), nil
	case domain.OpNe:
		return !domain.Equal(left, right), nil
	}
	var c int
	if a, ok := number(left); ok {
		b, ok := number(right)
		if !ok {
			return false, fmt.Errorf("%w: cannot order %s and %s", domain.ErrNotEvaluable, left, right)
		}
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	} else if a, ok := text(left); ok {
		b, ok := text(right)
		if !ok {
			return false, fmt.Errorf("%w: cannot order %s and %s", domain.ErrNotEvaluable, left, right)
		}
		switch {
		case a < b:
			c = -1
		case a > b:
			c = 1
		}
	} else {
		return false, fmt.Errorf("%w: cannot order %s", domain.ErrNotEvaluable, left)
	}
	switch op {
	case domain.OpLt:
		return c < 0, nil
	case domain.OpLe:
		return c <= 0, nil
	case domain.OpGt:
		return c > 0, nil
	case domain.OpGe:
		return c >= 0, nil
	}
	return false, fmt.Errorf("%w: unknown comparison %q", domain.ErrNotEvaluable, op)
}

func number(t domain.Term) (float64, bool) {
	c, ok := t.(domain.Constant)
	if !ok {
		return 0, false
	}
	return c.Number()
}

func text(t domain.Term) (string, bool) {
	c, ok := t.(domain.Constant)
	if !ok {
		return "", false
	}
	return c.Text()
}
