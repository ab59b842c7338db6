package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is wrapped by every term syntax error.
var ErrParse = errors.New("parse error")

// ParseTerm reads one term in the compact notation
//
//	~ns/functor(X, 1.5, "text", [a, _])[key(value)]
//
// Identifiers starting with an upper-case letter or "_" are variables,
// true/false are booleans, and functors may be "/"-separated paths.
func ParseTerm(s string) (Term, error) {
	p := &termParser{src: s}
	t, err := p.term()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return t, nil
}

// ParseLiteral is ParseTerm restricted to literals.
func ParseLiteral(s string) (Literal, error) {
	t, err := ParseTerm(s)
	if err != nil {
		return Literal{}, err
	}
	l, ok := t.(Literal)
	if !ok {
		return Literal{}, fmt.Errorf("%w: %q is a %s, not a literal", ErrParse, s, t.Kind())
	}
	return l, nil
}

// MustParseLiteral is ParseLiteral that panics on malformed input.
func MustParseLiteral(s string) Literal {
	l, err := ParseLiteral(s)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseTrigger reads a trigger pattern such as "+!goal(X)" or "-belief".
func ParseTrigger(s string) (TriggerType, Literal, error) {
	s = strings.TrimSpace(s)
	var tt TriggerType
	switch {
	case strings.HasPrefix(s, "+!"):
		tt, s = AddGoal, s[2:]
	case strings.HasPrefix(s, "-!"):
		tt, s = RemoveGoal, s[2:]
	case strings.HasPrefix(s, "+"):
		tt, s = AddBelief, s[1:]
	case strings.HasPrefix(s, "-"):
		tt, s = RemoveBelief, s[1:]
	default:
		return 0, Literal{}, fmt.Errorf("%w: trigger %q must start with +, -, +! or -!", ErrParse, s)
	}
	lit, err := ParseLiteral(s)
	if err != nil {
		return 0, Literal{}, err
	}
	return tt, lit, nil
}

type termParser struct {
	src string
	pos int
}

func (p *termParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrParse, fmt.Sprintf(format, args...), p.pos, p.src)
}

func (p *termParser) eof() bool { return p.pos >= len(p.src) }

func (p *termParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *termParser) skipSpace() {
	for !p.eof() && strings.IndexByte(" \t\r\n", p.src[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *termParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *termParser) term() (Term, error) {
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("unexpected end of input")
	}
	c := p.peek()
	switch {
	case c == '[':
		return p.list()
	case c == '"':
		return p.str()
	case c == '-' || c == '+' || isDigit(c):
		return p.number()
	case c == '_' || isUpper(c):
		return Variable{Name: p.ident()}, nil
	case c == '~' || isLower(c):
		return p.literal()
	}
	return nil, p.errorf("unexpected %q", c)
}

func (p *termParser) list() (Term, error) {
	p.pos++
	items, err := p.terms(']')
	if err != nil {
		return nil, err
	}
	return List{Items: items}, nil
}

// terms reads a comma-separated sequence up to and including the closing byte.
func (p *termParser) terms(closing byte) ([]Term, error) {
	var out []Term
	p.skipSpace()
	if p.peek() == closing {
		p.pos++
		return out, nil
	}
	for {
		t, err := p.term()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case closing:
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or %q", closing)
		}
	}
}

func (p *termParser) str() (Term, error) {
	start := p.pos
	p.pos++
	for !p.eof() {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s, err := strconv.Unquote(p.src[start:p.pos])
			if err != nil {
				return nil, p.errorf("bad string: %v", err)
			}
			return Str(s), nil
		}
		p.pos++
	}
	return nil, p.errorf("unterminated string")
}

func (p *termParser) number() (Term, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	digits := func() {
		for isDigit(p.peek()) {
			p.pos++
		}
	}
	digits()
	if p.peek() == '.' {
		p.pos++
		digits()
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		p.pos++
		if c := p.peek(); c == '-' || c == '+' {
			p.pos++
		}
		digits()
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, p.errorf("bad number %q", p.src[start:p.pos])
	}
	return Num(f), nil
}

func (p *termParser) ident() string {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c != '_' && !isDigit(c) && !isUpper(c) && !isLower(c) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *termParser) literal() (Term, error) {
	var lit Literal
	if p.peek() == '~' {
		lit.Negated = true
		p.pos++
	}
	for {
		if !isLower(p.peek()) {
			return nil, p.errorf("functor segment must start with a lower-case letter")
		}
		lit.Functor = append(lit.Functor, p.ident())
		if p.peek() != '/' {
			break
		}
		p.pos++
	}
	if p.peek() == '(' {
		p.pos++
		args, err := p.terms(')')
		if err != nil {
			return nil, err
		}
		lit.Args = args
	}
	p.skipSpace()
	if p.peek() == '[' {
		p.pos++
		annots, err := p.annotations()
		if err != nil {
			return nil, err
		}
		lit.Annotations = annots
	}
	if !lit.Negated && len(lit.Functor) == 1 && len(lit.Args) == 0 && len(lit.Annotations) == 0 {
		switch lit.Functor[0] {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
	}
	return lit, nil
}

func (p *termParser) annotations() (map[string]Term, error) {
	out := make(map[string]Term)
	p.skipSpace()
	if p.peek() == ']' {
		p.pos++
		return out, nil
	}
	for {
		p.skipSpace()
		if !isLower(p.peek()) {
			return nil, p.errorf("annotation key must start with a lower-case letter")
		}
		key := p.ident()
		var value Term = Bool(true)
		if p.peek() == '(' {
			p.pos++
			v, err := p.term()
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			value = v
		}
		out[key] = value
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or ']'")
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
