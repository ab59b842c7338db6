package domain

import (
	"fmt"
	"strings"
)

// ExprKind enumerates guard and condition expression nodes.
type ExprKind int

const (
	ExprTrue ExprKind = iota
	ExprFalse
	ExprBelief
	ExprRule
	ExprAnd
	ExprOr
	ExprNot
	ExprCompare
	ExprUnify
	ExprAction
)

// CompareOp is a relational operator.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpLe CompareOp = "<="
	OpGt CompareOp = ">"
	OpGe CompareOp = ">="
)

func (op CompareOp) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// ArithOp is an arithmetic operator used inside operands.
type ArithOp string

const (
	ArithNone ArithOp = ""
	ArithAdd  ArithOp = "+"
	ArithSub  ArithOp = "-"
	ArithMul  ArithOp = "*"
	ArithDiv  ArithOp = "/"
	ArithMod  ArithOp = "%"
	ArithPow  ArithOp = "^"
)

func (op ArithOp) Valid() bool {
	switch op {
	case ArithAdd, ArithSub, ArithMul, ArithDiv, ArithMod, ArithPow:
		return true
	}
	return false
}

// Operand is either a plain term or an arithmetic node over two operands.
type Operand struct {
	Term  Term
	Op    ArithOp
	Left  *Operand
	Right *Operand
}

func Value(t Term) Operand { return Operand{Term: t} }

func Arith(op ArithOp, left, right Operand) Operand {
	return Operand{Op: op, Left: &left, Right: &right}
}

func (o Operand) String() string {
	if o.Op == ArithNone {
		if o.Term == nil {
			return "nil"
		}
		return o.Term.String()
	}
	return fmt.Sprintf("(%s %s %s)", o.Left, o.Op, o.Right)
}

// ActionCall names an external action, its arguments and the patterns its
// returned terms are unified with.
type ActionCall struct {
	Name     Path
	Args     []Term
	Returns  []Term
	Parallel bool
}

func (c ActionCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	s := fmt.Sprintf(".%s(%s)", c.Name, strings.Join(args, ", "))
	if c.Parallel {
		s = "@" + s
	}
	if len(c.Returns) > 0 {
		rets := make([]string, len(c.Returns))
		for i, r := range c.Returns {
			rets[i] = r.String()
		}
		s = strings.Join(rets, ", ") + " = " + s
	}
	return s
}

// Expr is a closed tagged variant over guard expressions. Only the fields
// relevant to Kind are set.
type Expr struct {
	Kind     ExprKind
	Literal  Literal
	Children []Expr
	Op       CompareOp
	Left     Operand
	Right    Operand
	Call     ActionCall
}

func True() Expr  { return Expr{Kind: ExprTrue} }
func False() Expr { return Expr{Kind: ExprFalse} }

func BeliefExpr(l Literal) Expr { return Expr{Kind: ExprBelief, Literal: l} }
func RuleExpr(l Literal) Expr   { return Expr{Kind: ExprRule, Literal: l} }

func And(children ...Expr) Expr { return Expr{Kind: ExprAnd, Children: children} }
func Or(children ...Expr) Expr  { return Expr{Kind: ExprOr, Children: children} }
func Not(child Expr) Expr       { return Expr{Kind: ExprNot, Children: []Expr{child}} }

func Compare(op CompareOp, left, right Operand) Expr {
	return Expr{Kind: ExprCompare, Op: op, Left: left, Right: right}
}

func UnifyExpr(left, right Operand) Expr {
	return Expr{Kind: ExprUnify, Left: left, Right: right}
}

func ActionExpr(call ActionCall) Expr { return Expr{Kind: ExprAction, Call: call} }

func (e Expr) String() string {
	switch e.Kind {
	case ExprTrue:
		return "true"
	case ExprFalse:
		return "false"
	case ExprBelief:
		return e.Literal.String()
	case ExprRule:
		return "$" + e.Literal.String()
	case ExprAnd, ExprOr:
		sep := " && "
		if e.Kind == ExprOr {
			sep = " || "
		}
		parts := make([]string, len(e.Children))
		for i, c := range e.Children {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, sep) + ")"
	case ExprNot:
		if len(e.Children) == 0 {
			return "~()"
		}
		return "not " + e.Children[0].String()
	case ExprCompare:
		return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right)
	case ExprUnify:
		return fmt.Sprintf("%s = %s", e.Left, e.Right)
	case ExprAction:
		return e.Call.String()
	}
	return "?"
}

// Rename returns o with every named variable passed through fn.
func (o Operand) Rename(fn func(string) string) Operand {
	if o.Op == ArithNone {
		if o.Term != nil {
			o.Term = Rename(o.Term, fn)
		}
		return o
	}
	l, r := o.Left.Rename(fn), o.Right.Rename(fn)
	return Operand{Op: o.Op, Left: &l, Right: &r}
}

// Rename returns c with every named variable passed through fn.
func (c ActionCall) Rename(fn func(string) string) ActionCall {
	out := ActionCall{Name: c.Name, Parallel: c.Parallel}
	out.Args = renameTerms(c.Args, fn)
	out.Returns = renameTerms(c.Returns, fn)
	return out
}

// Rename returns e with every named variable passed through fn.
func (e Expr) Rename(fn func(string) string) Expr {
	out := Expr{Kind: e.Kind, Op: e.Op}
	switch e.Kind {
	case ExprBelief, ExprRule:
		out.Literal = Rename(e.Literal, fn).(Literal)
	case ExprAnd, ExprOr, ExprNot:
		out.Children = make([]Expr, len(e.Children))
		for i, c := range e.Children {
			out.Children[i] = c.Rename(fn)
		}
	case ExprCompare, ExprUnify:
		out.Left = e.Left.Rename(fn)
		out.Right = e.Right.Rename(fn)
	case ExprAction:
		out.Call = e.Call.Rename(fn)
	}
	return out
}

func renameTerms(ts []Term, fn func(string) string) []Term {
	if len(ts) == 0 {
		return nil
	}
	out := make([]Term, len(ts))
	for i, t := range ts {
		out[i] = Rename(t, fn)
	}
	return out
}
