package program

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

func TestLoadFile(t *testing.T) {
	p, err := LoadFile(filepath.Join("testdata", "greeter.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "greeter", p.Name)
	require.Len(t, p.Beliefs, 3)
	assert.Equal(t, domain.SourceInitial, p.Beliefs[0].Source)
	assert.InDelta(t, 0.8, p.Beliefs[0].Confidence, 1e-9)
	assert.InDelta(t, 1.0, p.Beliefs[1].Confidence, 1e-9)

	require.Len(t, p.Goals, 1)
	assert.Equal(t, "greet(alice)", p.Goals[0].String())

	require.Len(t, p.Rules, 2)
	require.NotNil(t, p.Rules[1].Body)
	assert.Equal(t, domain.ExprAnd, p.Rules[1].Body.Kind)
	assert.Equal(t, domain.ExprRule, p.Rules[1].Body.Children[1].Kind)

	require.Len(t, p.Plans, 3)
	greet := p.Plans[0]
	assert.Equal(t, domain.AddGoal, greet.Trigger)
	assert.Equal(t, 1, greet.Priority)
	require.NotNil(t, greet.Guard)
	assert.Equal(t, domain.ExprCompare, greet.Guard.Children[1].Kind)
	require.Len(t, greet.Body, 3)
	assert.Equal(t, domain.InstrAddBelief, greet.Body[0].Kind)
	assert.Equal(t, domain.InstrAchieve, greet.Body[1].Kind)
	assert.Equal(t, domain.InstrAction, greet.Body[2].Kind)
	assert.True(t, domain.Equal(domain.Str("hello"), greet.Body[2].Call.Args[0]))

	say := p.Plans[1]
	require.Len(t, say.Body, 3)
	assert.Equal(t, domain.InstrAssign, say.Body[0].Kind)
	assert.Equal(t, domain.ArithAdd, say.Body[0].Value.Op)
	assert.Equal(t, domain.InstrForEach, say.Body[1].Kind)
	assert.Equal(t, "I", say.Body[1].Var)
	require.Len(t, say.Body[1].Then, 1)
	assert.Equal(t, []domain.Term{domain.Var("S")}, say.Body[1].Then[0].Call.Returns)
	assert.Equal(t, domain.InstrIf, say.Body[2].Kind)
	assert.Equal(t, domain.InstrSpawn, say.Body[2].Then[0].Kind)
	assert.Equal(t, "not greeted", say.Body[2].Else[0].Reason)

	rec := p.Plans[2]
	assert.Equal(t, domain.RemoveGoal, rec.Trigger)
	assert.True(t, rec.Atomic)
	assert.True(t, domain.Equal(domain.Atom("ops"), rec.Annotations["owner"]))
	assert.Equal(t, domain.InstrWhile, rec.Body[0].Kind)
	assert.Equal(t, domain.ExprNot, rec.Body[0].Cond.Kind)
	assert.Equal(t, domain.InstrTest, rec.Body[1].Kind)
	assert.Equal(t, domain.ExprUnify, rec.Body[1].Cond.Kind)
	assert.Equal(t, domain.InstrRemoveBelief, rec.Body[2].Kind)
	assert.Equal(t, domain.InstrDrop, rec.Body[3].Kind)
}

func TestParse_ScalarGuards(t *testing.T) {
	p, err := Parse([]byte(`
plans:
  - trigger: "+tick"
    guard: true
  - trigger: "+tock"
    guard: "$ready"
  - trigger: "-tock"
    guard: {value: false}
`))
	require.NoError(t, err)
	require.Len(t, p.Plans, 3)
	assert.Equal(t, domain.ExprTrue, p.Plans[0].Guard.Kind)
	assert.Equal(t, domain.ExprRule, p.Plans[1].Guard.Kind)
	assert.Equal(t, domain.ExprFalse, p.Plans[2].Guard.Kind)
	assert.Equal(t, domain.RemoveBelief, p.Plans[2].Trigger)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", ``, "empty document"},
		{"unknown field", "plans:\n  - trigger: \"+a\"\n    bogus: 1\n", "parse YAML"},
		{"non-ground belief", "beliefs: [\"foo(X)\"]\n", "not ground"},
		{"bad trigger", "plans:\n  - trigger: \"a\"\n", "plan 0"},
		{"two kinds", "plans:\n  - trigger: \"+!a\"\n    body:\n      - {add: \"x\", remove: \"y\"}\n", "exactly one kind"},
		{"two expr kinds", "plans:\n  - trigger: \"+!a\"\n    guard: {belief: \"x\", rule: \"y\"}\n", "exactly one of"},
		{"bad compare", "plans:\n  - trigger: \"+!a\"\n    guard: {compare: {op: \"~\", left: \"1\", right: \"2\"}}\n", "unknown comparison"},
		{"assign constant", "plans:\n  - trigger: \"+!a\"\n    body:\n      - assign: {var: x, value: \"1\"}\n", "not a variable"},
		{"missing operand", "plans:\n  - trigger: \"+!a\"\n    guard: {compare: {op: \"<\", left: \"1\"}}\n", "missing operand"},
		{"bad arith", "plans:\n  - trigger: \"+!a\"\n    body:\n      - assign: {var: X, value: {op: \"&\", left: \"1\", right: \"2\"}}\n", "unknown arithmetic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProgram), err.Error())
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("goals: [\"b\"]\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("name: first\ngoals: [\"a\"]\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	programs, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, "first", programs[0].Name)
	assert.Equal(t, "b", programs[1].Name)
}

func TestExamplePrograms(t *testing.T) {
	programs, err := LoadDir(filepath.Join("..", "..", "examples"))
	require.NoError(t, err)
	require.NotEmpty(t, programs)
	for _, p := range programs {
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Plans, p.Name)
	}
}
