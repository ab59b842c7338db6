// Package unify implements first-order unification over domain terms.
//
// Annotation sets match partially: only keys present on both sides are
// unified, and keys present on one side only are ignored. No occurs-check is
// performed.
package unify

import (
	"fmt"
	"sync/atomic"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// Terms unifies pattern with value, extending s. On failure the returned
// substitution is s unchanged and must be discarded by the caller.
func Terms(pattern, value domain.Term, s domain.Substitution) (domain.Substitution, bool) {
	out, ok := terms(pattern, value, s)
	if !ok {
		return s, false
	}
	return out, true
}

// Literals unifies two literals: negation, functor path and arity must match,
// arguments unify pairwise left to right and shared annotation keys unify.
func Literals(pattern, value domain.Literal, s domain.Substitution) (domain.Substitution, bool) {
	out, ok := literals(pattern, value, s)
	if !ok {
		return s, false
	}
	return out, true
}

// Match unifies with an empty substitution.
func Match(pattern, value domain.Term) (domain.Substitution, bool) {
	return Terms(pattern, value, domain.EmptySubstitution())
}

func terms(a, b domain.Term, s domain.Substitution) (domain.Substitution, bool) {
	a, b = s.Walk(a), s.Walk(b)
	if va, ok := a.(domain.Variable); ok {
		if va.Anonymous() {
			return s, true
		}
		if vb, ok := b.(domain.Variable); ok && vb.Name == va.Name {
			return s, true
		}
		return s.Bind(va.Name, b), true
	}
	if vb, ok := b.(domain.Variable); ok {
		if vb.Anonymous() {
			return s, true
		}
		return s.Bind(vb.Name, a), true
	}

	switch x := a.(type) {
	case domain.Constant:
		y, ok := b.(domain.Constant)
		return s, ok && x.Equal(y)
	case domain.List:
		y, ok := b.(domain.List)
		if !ok || len(x.Items) != len(y.Items) {
			return s, false
		}
		for i := range x.Items {
			if s, ok = terms(x.Items[i], y.Items[i], s); !ok {
				return s, false
			}
		}
		return s, true
	case domain.Literal:
		y, ok := b.(domain.Literal)
		if !ok {
			return s, false
		}
		return literals(x, y, s)
	}
	return s, false
}

func literals(a, b domain.Literal, s domain.Substitution) (domain.Substitution, bool) {
	if a.Negated != b.Negated || len(a.Args) != len(b.Args) || !a.Functor.Equal(b.Functor) {
		return s, false
	}
	var ok bool
	for i := range a.Args {
		if s, ok = terms(a.Args[i], b.Args[i], s); !ok {
			return s, false
		}
	}
	for _, k := range a.AnnotationKeys() {
		other, present := b.Annotations[k]
		if !present {
			continue
		}
		if s, ok = terms(a.Annotations[k], other, s); !ok {
			return s, false
		}
	}
	return s, true
}

// Renamer produces variables that cannot clash with any name written in a
// program, used to rename rules and sub-goals apart before unification.
type Renamer struct {
	n atomic.Uint64
}

// Fresh returns a renaming function for one call; every invocation of Fresh
// yields a new suffix.
func (r *Renamer) Fresh() func(string) string {
	id := r.n.Add(1)
	return func(name string) string {
		return fmt.Sprintf("%s#%d", name, id)
	}
}

// Literal renames every named variable of l apart.
func (r *Renamer) Literal(l domain.Literal) domain.Literal {
	return domain.Rename(l, r.Fresh()).(domain.Literal)
}
