package domain

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// TermKind discriminates the closed set of term shapes.
type TermKind int

const (
	KindVariable TermKind = iota
	KindConstant
	KindLiteral
	KindList
)

func (k TermKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindConstant:
		return "constant"
	case KindLiteral:
		return "literal"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Term is a variable, constant, literal or list. Terms are immutable values and
// must be compared with Equal, never with ==.
type Term interface {
	Kind() TermKind
	String() string
}

// Variable is a named placeholder resolved through a Substitution.
// The name "_" is anonymous: it matches anything and never binds.
type Variable struct {
	Name string
}

func Var(name string) Variable { return Variable{Name: name} }

func (Variable) Kind() TermKind { return KindVariable }

func (v Variable) String() string { return v.Name }

func (v Variable) Anonymous() bool { return v.Name == "" || v.Name == "_" }

// Constant is an opaque immutable value: a number, string, boolean or an
// externally-owned object handed over by an action. Every numeric kind is
// normalised to float64 so 1 and 1.0 compare equal.
type Constant struct {
	Value any
}

func Const(v any) Constant {
	switch n := v.(type) {
	case int:
		return Constant{Value: float64(n)}
	case int8:
		return Constant{Value: float64(n)}
	case int16:
		return Constant{Value: float64(n)}
	case int32:
		return Constant{Value: float64(n)}
	case int64:
		return Constant{Value: float64(n)}
	case uint:
		return Constant{Value: float64(n)}
	case uint8:
		return Constant{Value: float64(n)}
	case uint16:
		return Constant{Value: float64(n)}
	case uint32:
		return Constant{Value: float64(n)}
	case uint64:
		return Constant{Value: float64(n)}
	case float32:
		return Constant{Value: float64(n)}
	}
	return Constant{Value: v}
}

func Num(f float64) Constant { return Constant{Value: f} }

func Str(s string) Constant { return Constant{Value: s} }

func Bool(b bool) Constant { return Constant{Value: b} }

func (Constant) Kind() TermKind { return KindConstant }

func (c Constant) Number() (float64, bool) {
	f, ok := c.Value.(float64)
	return f, ok
}

func (c Constant) Text() (string, bool) {
	s, ok := c.Value.(string)
	return s, ok
}

func (c Constant) Truth() (bool, bool) {
	b, ok := c.Value.(bool)
	return b, ok
}

func (c Constant) Equal(o Constant) bool {
	if c.Value == nil || o.Value == nil {
		return c.Value == nil && o.Value == nil
	}
	ct, ot := reflect.TypeOf(c.Value), reflect.TypeOf(o.Value)
	if ct != ot {
		return false
	}
	if ct.Comparable() {
		return c.Value == o.Value
	}
	return reflect.DeepEqual(c.Value, o.Value)
}

func (c Constant) String() string {
	switch v := c.Value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

// List is an ordered sequence of terms unified element-wise.
type List struct {
	Items []Term
}

func NewList(items ...Term) List { return List{Items: items} }

func (List) Kind() TermKind { return KindList }

func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, t := range l.Items {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equal reports structural equality. Annotation sets are compared as sets.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Variable:
		return x.Name == b.(Variable).Name
	case Constant:
		return x.Equal(b.(Constant))
	case List:
		y := b.(List)
		if len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case Literal:
		return x.Equal(b.(Literal))
	}
	return false
}

// IsGround reports whether t contains no variables.
func IsGround(t Term) bool {
	ground := true
	walkVariables(t, func(Variable) { ground = false })
	return ground
}

// Variables returns the distinct variable names of t in first-occurrence order.
func Variables(t Term) []string {
	var names []string
	seen := make(map[string]struct{})
	walkVariables(t, func(v Variable) {
		if v.Anonymous() {
			return
		}
		if _, ok := seen[v.Name]; ok {
			return
		}
		seen[v.Name] = struct{}{}
		names = append(names, v.Name)
	})
	return names
}

func walkVariables(t Term, fn func(Variable)) {
	switch x := t.(type) {
	case Variable:
		fn(x)
	case List:
		for _, item := range x.Items {
			walkVariables(item, fn)
		}
	case Literal:
		for _, arg := range x.Args {
			walkVariables(arg, fn)
		}
		for _, k := range x.AnnotationKeys() {
			walkVariables(x.Annotations[k], fn)
		}
	}
}

// Rename returns t with every named variable replaced by fn(name).
// Anonymous variables are left untouched.
func Rename(t Term, fn func(string) string) Term {
	switch x := t.(type) {
	case Variable:
		if x.Anonymous() {
			return x
		}
		return Variable{Name: fn(x.Name)}
	case List:
		items := make([]Term, len(x.Items))
		for i, item := range x.Items {
			items[i] = Rename(item, fn)
		}
		return List{Items: items}
	case Literal:
		return x.mapTerms(func(t Term) Term { return Rename(t, fn) })
	}
	return t
}
