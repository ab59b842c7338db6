package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Path is an ordered functor namespace, written with "/" separators.
type Path []string

func ParsePath(s string) Path {
	var p Path
	for _, seg := range strings.Split(s, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

func (p Path) String() string { return strings.Join(p, "/") }

func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p Path) Empty() bool { return len(p) == 0 }

// Signature is the index key of a literal: functor path, arity and negation.
type Signature struct {
	Functor string
	Arity   int
	Negated bool
}

func (s Signature) String() string {
	prefix := ""
	if s.Negated {
		prefix = "~"
	}
	return fmt.Sprintf("%s%s/%d", prefix, s.Functor, s.Arity)
}

// Literal is a structured fact or goal: a functor path, ordered arguments and
// an unordered annotation set. Literals are immutable once built.
type Literal struct {
	Negated     bool
	Functor     Path
	Args        []Term
	Annotations map[string]Term
}

// NewLiteral builds a literal from a "/"-separated functor.
func NewLiteral(functor string, args ...Term) Literal {
	return Literal{Functor: ParsePath(functor), Args: args}
}

func Atom(functor string) Literal { return NewLiteral(functor) }

func (Literal) Kind() TermKind { return KindLiteral }

func (l Literal) Arity() int { return len(l.Args) }

func (l Literal) Signature() Signature {
	return Signature{Functor: l.Functor.String(), Arity: len(l.Args), Negated: l.Negated}
}

func (l Literal) Valid() bool { return !l.Functor.Empty() }

// AnnotationKeys returns annotation keys in sorted order.
func (l Literal) AnnotationKeys() []string {
	keys := make([]string, 0, len(l.Annotations))
	for k := range l.Annotations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l Literal) Annotation(key string) (Term, bool) {
	t, ok := l.Annotations[key]
	return t, ok
}

// WithAnnotation returns a copy of l carrying key=value.
func (l Literal) WithAnnotation(key string, value Term) Literal {
	annots := make(map[string]Term, len(l.Annotations)+1)
	for k, v := range l.Annotations {
		annots[k] = v
	}
	annots[key] = value
	l.Annotations = annots
	return l
}

// WithoutAnnotations returns a copy of l with an empty annotation set.
func (l Literal) WithoutAnnotations() Literal {
	l.Annotations = nil
	return l
}

func (l Literal) Equal(o Literal) bool {
	if l.Negated != o.Negated || !l.Functor.Equal(o.Functor) || len(l.Args) != len(o.Args) {
		return false
	}
	for i := range l.Args {
		if !Equal(l.Args[i], o.Args[i]) {
			return false
		}
	}
	if len(l.Annotations) != len(o.Annotations) {
		return false
	}
	for k, v := range l.Annotations {
		w, ok := o.Annotations[k]
		if !ok || !Equal(v, w) {
			return false
		}
	}
	return true
}

func (l Literal) IsGround() bool { return IsGround(l) }

func (l Literal) String() string {
	var b strings.Builder
	if l.Negated {
		b.WriteByte('~')
	}
	b.WriteString(l.Functor.String())
	if len(l.Args) > 0 {
		b.WriteByte('(')
		for i, a := range l.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteByte(')')
	}
	if len(l.Annotations) > 0 {
		b.WriteByte('[')
		for i, k := range l.AnnotationKeys() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteByte('(')
			b.WriteString(l.Annotations[k].String())
			b.WriteByte(')')
		}
		b.WriteByte(']')
	}
	return b.String()
}

func (l Literal) mapTerms(fn func(Term) Term) Literal {
	out := Literal{Negated: l.Negated, Functor: l.Functor}
	if len(l.Args) > 0 {
		out.Args = make([]Term, len(l.Args))
		for i, a := range l.Args {
			out.Args[i] = fn(a)
		}
	}
	if len(l.Annotations) > 0 {
		out.Annotations = make(map[string]Term, len(l.Annotations))
		for k, v := range l.Annotations {
			out.Annotations[k] = fn(v)
		}
	}
	return out
}
