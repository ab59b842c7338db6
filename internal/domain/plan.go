package domain

import (
	"fmt"
	"strings"
)

// InstructionKind enumerates the fixed instruction set of plan bodies.
type InstructionKind int

const (
	InstrAddBelief InstructionKind = iota + 1
	InstrRemoveBelief
	InstrAchieve
	InstrSpawn
	InstrDrop
	InstrTest
	InstrAction
	InstrAssign
	InstrIf
	InstrWhile
	InstrForEach
	InstrFail
)

func (k InstructionKind) String() string {
	switch k {
	case InstrAddBelief:
		return "add"
	case InstrRemoveBelief:
		return "remove"
	case InstrAchieve:
		return "achieve"
	case InstrSpawn:
		return "spawn"
	case InstrDrop:
		return "drop"
	case InstrTest:
		return "test"
	case InstrAction:
		return "action"
	case InstrAssign:
		return "assign"
	case InstrIf:
		return "if"
	case InstrWhile:
		return "while"
	case InstrForEach:
		return "foreach"
	case InstrFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Instruction is one step of a plan body. Only the fields relevant to Kind are set:
//
//	add/remove/achieve/spawn/drop  Literal
//	test                           Cond
//	action                         Call
//	assign                         Var, Value
//	if                             Cond, Then, Else
//	while                          Cond, Then
//	foreach                        Var, Value (the list), Then
//	fail                           Reason
type Instruction struct {
	Kind    InstructionKind
	Literal Literal
	Cond    Expr
	Call    ActionCall
	Var     string
	Value   Operand
	Then    []Instruction
	Else    []Instruction
	Reason  string
}

func (i Instruction) String() string {
	switch i.Kind {
	case InstrAddBelief:
		return "+" + i.Literal.String()
	case InstrRemoveBelief:
		return "-" + i.Literal.String()
	case InstrAchieve:
		return "!" + i.Literal.String()
	case InstrSpawn:
		return "!!" + i.Literal.String()
	case InstrDrop:
		return "-!" + i.Literal.String()
	case InstrTest:
		return "?" + i.Cond.String()
	case InstrAction:
		return i.Call.String()
	case InstrAssign:
		return fmt.Sprintf("%s := %s", i.Var, i.Value)
	case InstrIf:
		return fmt.Sprintf("if (%s) {%d} else {%d}", i.Cond, len(i.Then), len(i.Else))
	case InstrWhile:
		return fmt.Sprintf("while (%s) {%d}", i.Cond, len(i.Then))
	case InstrForEach:
		return fmt.Sprintf("foreach %s in %s {%d}", i.Var, i.Value, len(i.Then))
	case InstrFail:
		return "fail(" + i.Reason + ")"
	}
	return i.Kind.String()
}

// Plan is an immutable reaction rule: trigger pattern, guard and body.
type Plan struct {
	ID          int
	Name        string
	Trigger     TriggerType
	Pattern     Literal
	Guard       *Expr
	Body        []Instruction
	Priority    int
	Atomic      bool
	Annotations map[string]Term
}

// Label returns the plan name, falling back to its trigger.
func (p *Plan) Label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Trigger.String() + p.Pattern.String()
}

func (p *Plan) String() string {
	var b strings.Builder
	b.WriteString(p.Trigger.String())
	b.WriteString(p.Pattern.String())
	if p.Guard != nil {
		b.WriteString(" : ")
		b.WriteString(p.Guard.String())
	}
	b.WriteString(" <- ")
	parts := make([]string, len(p.Body))
	for i, in := range p.Body {
		parts[i] = in.String()
	}
	b.WriteString(strings.Join(parts, "; "))
	return b.String()
}

// Rule is a Horn clause evaluated during guard resolution. A nil Body makes
// the rule a fact.
type Rule struct {
	Head Literal
	Body *Expr
}

func (r Rule) String() string {
	if r.Body == nil {
		return r.Head.String() + "."
	}
	return r.Head.String() + " :- " + r.Body.String() + "."
}

// Program is the compiled agent artifact consumed at construction.
type Program struct {
	Name    string
	Beliefs []Belief
	Goals   []Literal
	Rules   []Rule
	Plans   []Plan
}
