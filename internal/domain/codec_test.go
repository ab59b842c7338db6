package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTerm_RoundTrip(t *testing.T) {
	terms := []Term{
		Num(0),
		Str(""),
		Bool(false),
		Constant{},
		Var("X"),
		NewList(),
		MustParseLiteral(`~a/b(X, 1, "s", [1, [2]])[k(v), conf(0.5)]`),
	}
	for _, term := range terms {
		t.Run(term.String(), func(t *testing.T) {
			data, err := MarshalTerm(term)
			require.NoError(t, err)
			got, err := UnmarshalTerm(data)
			require.NoError(t, err)
			assert.True(t, Equal(term, got), "got %s, want %s", got, term)
		})
	}
}

func TestMarshalTerm_RejectsOpaqueConstants(t *testing.T) {
	_, err := MarshalTerm(NewList(Const(struct{ A int }{1})))
	assert.ErrorIs(t, err, ErrNotEncodable)
}

func TestUnmarshalTerm_Malformed(t *testing.T) {
	_, err := UnmarshalTerm([]byte(`{}`))
	assert.Error(t, err)
	_, err = UnmarshalTerm([]byte(`not json`))
	assert.Error(t, err)
}
