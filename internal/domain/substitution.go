package domain

import (
	"sort"
	"strings"
)

// Substitution maps variable names to terms. Bindings live in a flat arena of
// slots; every mutator returns a new Substitution and never writes into an
// arena it shares with another value.
//
// No occurs-check is performed. Walk and Apply stop on a revisited variable.
type Substitution struct {
	names []string
	terms []Term
}

// EmptySubstitution returns a substitution without bindings.
func EmptySubstitution() Substitution { return Substitution{} }

func (s Substitution) Len() int { return len(s.names) }

func (s Substitution) slot(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Lookup returns the term directly bound to name.
func (s Substitution) Lookup(name string) (Term, bool) {
	if i := s.slot(name); i >= 0 {
		return s.terms[i], true
	}
	return nil, false
}

func (s Substitution) Bound(name string) bool { return s.slot(name) >= 0 }

// Bind returns s extended with name=t. An existing binding for name is replaced.
func (s Substitution) Bind(name string, t Term) Substitution {
	if i := s.slot(name); i >= 0 {
		return s.Rebind(name, t)
	}
	n := len(s.names)
	return Substitution{
		names: append(s.names[:n:n], name),
		terms: append(s.terms[:n:n], t),
	}
}

// Rebind returns a copy of s where name is bound to t. It is used by
// assignments, which overwrite a variable in place.
func (s Substitution) Rebind(name string, t Term) Substitution {
	i := s.slot(name)
	if i < 0 {
		return s.Bind(name, t)
	}
	names := make([]string, len(s.names))
	terms := make([]Term, len(s.terms))
	copy(names, s.names)
	copy(terms, s.terms)
	terms[i] = t
	return Substitution{names: names, terms: terms}
}

// Restrict returns the bindings of s whose names appear in keep.
func (s Substitution) Restrict(keep []string) Substitution {
	set := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		set[k] = struct{}{}
	}
	var out Substitution
	for i, n := range s.names {
		if _, ok := set[n]; ok {
			out.names = append(out.names, n)
			out.terms = append(out.terms, s.terms[i])
		}
	}
	return out
}

// Names returns the bound variable names in binding order.
func (s Substitution) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Walk follows variable bindings until it reaches a non-variable term or an
// unbound variable.
func (s Substitution) Walk(t Term) Term {
	for steps := 0; steps <= len(s.names); steps++ {
		v, ok := t.(Variable)
		if !ok || v.Anonymous() {
			return t
		}
		next, bound := s.Lookup(v.Name)
		if !bound {
			return t
		}
		t = next
	}
	return t
}

// Apply replaces every bound variable in t by its resolved value.
func (s Substitution) Apply(t Term) Term {
	return s.apply(t, nil)
}

func (s Substitution) apply(t Term, visiting map[string]struct{}) Term {
	switch x := t.(type) {
	case Variable:
		if x.Anonymous() {
			return x
		}
		bound, ok := s.Lookup(x.Name)
		if !ok {
			return x
		}
		if _, loop := visiting[x.Name]; loop {
			return x
		}
		if visiting == nil {
			visiting = make(map[string]struct{})
		}
		visiting[x.Name] = struct{}{}
		out := s.apply(bound, visiting)
		delete(visiting, x.Name)
		return out
	case List:
		if len(x.Items) == 0 {
			return x
		}
		items := make([]Term, len(x.Items))
		for i, item := range x.Items {
			items[i] = s.apply(item, visiting)
		}
		return List{Items: items}
	case Literal:
		return x.mapTerms(func(t Term) Term { return s.apply(t, visiting) })
	}
	return t
}

// ApplyLiteral is Apply specialised to literals.
func (s Substitution) ApplyLiteral(l Literal) Literal {
	return s.Apply(l).(Literal)
}

// Resolved returns every binding with its value fully applied.
func (s Substitution) Resolved() map[string]Term {
	out := make(map[string]Term, len(s.names))
	for _, n := range s.names {
		out[n] = s.Apply(Variable{Name: n})
	}
	return out
}

func (s Substitution) String() string {
	resolved := s.Resolved()
	keys := make([]string, 0, len(resolved))
	for k := range resolved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + resolved[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
