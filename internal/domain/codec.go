package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotEncodable is returned for constants holding opaque Go values.
var ErrNotEncodable = errors.New("term is not encodable")

type termJSON struct {
	Var    *string      `json:"var,omitempty"`
	Num    *float64     `json:"num,omitempty"`
	Str    *string      `json:"str,omitempty"`
	Bool   *bool        `json:"bool,omitempty"`
	Nil    bool         `json:"nil,omitempty"`
	List   []termJSON   `json:"list,omitempty"`
	IsList bool         `json:"is_list,omitempty"`
	Lit    *literalJSON `json:"lit,omitempty"`
}

type literalJSON struct {
	Negated     bool                `json:"neg,omitempty"`
	Functor     string              `json:"functor"`
	Args        []termJSON          `json:"args,omitempty"`
	Annotations map[string]termJSON `json:"annots,omitempty"`
}

// MarshalTerm encodes t as JSON for the storage backends.
func MarshalTerm(t Term) ([]byte, error) {
	enc, err := encodeTerm(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(enc)
}

// UnmarshalTerm decodes a term produced by MarshalTerm.
func UnmarshalTerm(data []byte) (Term, error) {
	var enc termJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("decode term: %w", err)
	}
	return decodeTerm(enc)
}

func encodeTerm(t Term) (termJSON, error) {
	switch x := t.(type) {
	case Variable:
		name := x.Name
		return termJSON{Var: &name}, nil
	case Constant:
		switch v := x.Value.(type) {
		case float64:
			return termJSON{Num: &v}, nil
		case string:
			return termJSON{Str: &v}, nil
		case bool:
			return termJSON{Bool: &v}, nil
		case nil:
			return termJSON{Nil: true}, nil
		}
		return termJSON{}, fmt.Errorf("%w: constant of type %T", ErrNotEncodable, x.Value)
	case List:
		out := termJSON{IsList: true, List: make([]termJSON, len(x.Items))}
		for i, item := range x.Items {
			enc, err := encodeTerm(item)
			if err != nil {
				return termJSON{}, err
			}
			out.List[i] = enc
		}
		return out, nil
	case Literal:
		lit := &literalJSON{Negated: x.Negated, Functor: x.Functor.String()}
		for _, a := range x.Args {
			enc, err := encodeTerm(a)
			if err != nil {
				return termJSON{}, err
			}
			lit.Args = append(lit.Args, enc)
		}
		if len(x.Annotations) > 0 {
			lit.Annotations = make(map[string]termJSON, len(x.Annotations))
			for k, v := range x.Annotations {
				enc, err := encodeTerm(v)
				if err != nil {
					return termJSON{}, err
				}
				lit.Annotations[k] = enc
			}
		}
		return termJSON{Lit: lit}, nil
	}
	return termJSON{}, fmt.Errorf("%w: %T", ErrNotEncodable, t)
}

func decodeTerm(enc termJSON) (Term, error) {
	switch {
	case enc.Var != nil:
		return Variable{Name: *enc.Var}, nil
	case enc.Num != nil:
		return Num(*enc.Num), nil
	case enc.Str != nil:
		return Str(*enc.Str), nil
	case enc.Bool != nil:
		return Bool(*enc.Bool), nil
	case enc.Nil:
		return Constant{}, nil
	case enc.IsList:
		items := make([]Term, len(enc.List))
		for i, item := range enc.List {
			t, err := decodeTerm(item)
			if err != nil {
				return nil, err
			}
			items[i] = t
		}
		return List{Items: items}, nil
	case enc.Lit != nil:
		lit := Literal{Negated: enc.Lit.Negated, Functor: ParsePath(enc.Lit.Functor)}
		if !lit.Valid() {
			return nil, fmt.Errorf("decode term: empty functor")
		}
		for _, a := range enc.Lit.Args {
			t, err := decodeTerm(a)
			if err != nil {
				return nil, err
			}
			lit.Args = append(lit.Args, t)
		}
		if len(enc.Lit.Annotations) > 0 {
			lit.Annotations = make(map[string]Term, len(enc.Lit.Annotations))
			for k, v := range enc.Lit.Annotations {
				t, err := decodeTerm(v)
				if err != nil {
					return nil, err
				}
				lit.Annotations[k] = t
			}
		}
		return lit, nil
	}
	return nil, fmt.Errorf("decode term: unrecognised shape")
}
