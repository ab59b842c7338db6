package program

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the YAML shape of an agent program.
type document struct {
	Name    string     `yaml:"name"`
	Beliefs []string   `yaml:"beliefs"`
	Goals   []string   `yaml:"goals"`
	Rules   []ruleSpec `yaml:"rules"`
	Plans   []planSpec `yaml:"plans"`
}

type ruleSpec struct {
	Head string    `yaml:"head"`
	Body *exprSpec `yaml:"body"`
}

type planSpec struct {
	Name        string            `yaml:"name"`
	Trigger     string            `yaml:"trigger"`
	Priority    int               `yaml:"priority"`
	Atomic      bool              `yaml:"atomic"`
	Guard       *exprSpec         `yaml:"guard"`
	Body        []instrSpec       `yaml:"body"`
	Annotations map[string]string `yaml:"annotations"`
}

// exprSpec is a guard expression. A plain string is shorthand for a belief
// query, "$lit" for a rule call and true/false for the constants.
type exprSpec struct {
	Scalar  *string      `yaml:"-"`
	Value   *bool        `yaml:"value"`
	Belief  string       `yaml:"belief"`
	Rule    string       `yaml:"rule"`
	All     []exprSpec   `yaml:"all"`
	Any     []exprSpec   `yaml:"any"`
	Not     *exprSpec    `yaml:"not"`
	Compare *compareSpec `yaml:"compare"`
	Unify   *unifySpec   `yaml:"unify"`
	Action  *actionSpec  `yaml:"action"`
}

func (e *exprSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s := n.Value
		e.Scalar = &s
		return nil
	}
	type plain exprSpec
	return n.Decode((*plain)(e))
}

type compareSpec struct {
	Op    string      `yaml:"op"`
	Left  operandSpec `yaml:"left"`
	Right operandSpec `yaml:"right"`
}

type unifySpec struct {
	Left  operandSpec `yaml:"left"`
	Right operandSpec `yaml:"right"`
}

type actionSpec struct {
	Name     string   `yaml:"name"`
	Args     []string `yaml:"args"`
	Returns  []string `yaml:"returns"`
	Parallel bool     `yaml:"parallel"`
}

// operandSpec is a term in compact notation or an arithmetic node. String
// constants keep their quotes inside the YAML scalar: '"north"'.
type operandSpec struct {
	Term  string
	Op    string
	Left  *operandSpec
	Right *operandSpec
	set   bool
}

func (o *operandSpec) UnmarshalYAML(n *yaml.Node) error {
	o.set = true
	switch n.Kind {
	case yaml.ScalarNode:
		o.Term = n.Value
		return nil
	case yaml.MappingNode:
		var node struct {
			Op    string       `yaml:"op"`
			Left  *operandSpec `yaml:"left"`
			Right *operandSpec `yaml:"right"`
		}
		if err := n.Decode(&node); err != nil {
			return err
		}
		o.Op, o.Left, o.Right = node.Op, node.Left, node.Right
		return nil
	}
	return fmt.Errorf("line %d: operand must be a scalar or an {op, left, right} mapping", n.Line)
}

// instrSpec is one body instruction; exactly one field is set.
type instrSpec struct {
	Add     *string      `yaml:"add"`
	Remove  *string      `yaml:"remove"`
	Achieve *string      `yaml:"achieve"`
	Spawn   *string      `yaml:"spawn"`
	Drop    *string      `yaml:"drop"`
	Test    *exprSpec    `yaml:"test"`
	Action  *actionSpec  `yaml:"action"`
	Assign  *assignSpec  `yaml:"assign"`
	If      *ifSpec      `yaml:"if"`
	While   *whileSpec   `yaml:"while"`
	ForEach *forEachSpec `yaml:"foreach"`
	Fail    *string      `yaml:"fail"`
}

type assignSpec struct {
	Var   string      `yaml:"var"`
	Value operandSpec `yaml:"value"`
}

type ifSpec struct {
	Cond exprSpec    `yaml:"cond"`
	Then []instrSpec `yaml:"then"`
	Else []instrSpec `yaml:"else"`
}

type whileSpec struct {
	Cond exprSpec    `yaml:"cond"`
	Do   []instrSpec `yaml:"do"`
}

type forEachSpec struct {
	Var string      `yaml:"var"`
	In  operandSpec `yaml:"in"`
	Do  []instrSpec `yaml:"do"`
}
