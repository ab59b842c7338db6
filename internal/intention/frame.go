// Package intention models the per-agent intention stacks: each intention is
// a stack of frames, one per plan instantiation, bottom to top.
package intention

import (
	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/unify"
)

// State is the lifecycle state of a frame.
type State int

const (
	Ready State = iota
	Running
	Suspended
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Loop is the iteration state of a while or foreach block.
type Loop struct {
	Instr      *domain.Instruction
	Items      []domain.Term
	Index      int
	Keep       []string
	Iterations int
}

// Block is an instruction list with its own program counter. The plan body
// is the root block; branches and loop bodies are pushed on top of it.
type Block struct {
	Instrs []domain.Instruction
	PC     int
	Loop   *Loop
}

func (b *Block) Exhausted() bool { return b.PC >= len(b.Instrs) }

// Frame is one in-progress plan execution.
type Frame struct {
	ID      uint64
	Plan    *domain.Plan
	Trigger domain.Trigger
	Subst   domain.Substitution
	Value   domain.FuzzyValue
	State   State

	// Pending is the goal this frame is suspended on.
	Pending *domain.Literal
	// Handles is set on failure-handling frames to the goal whose failure
	// they handle.
	Handles *domain.Literal

	blocks []Block
}

func NewFrame(id uint64, p *domain.Plan, t domain.Trigger, s domain.Substitution, v domain.FuzzyValue) *Frame {
	return &Frame{
		ID:      id,
		Plan:    p,
		Trigger: t,
		Subst:   s,
		Value:   v,
		State:   Ready,
		blocks:  []Block{{Instrs: p.Body}},
	}
}

// Current returns the instruction under the program counter of the innermost
// block, or false when that block is exhausted.
func (f *Frame) Current() (*domain.Instruction, bool) {
	b := f.Top()
	if b.Exhausted() {
		return nil, false
	}
	return &b.Instrs[b.PC], true
}

func (f *Frame) Top() *Block { return &f.blocks[len(f.blocks)-1] }

func (f *Frame) Depth() int { return len(f.blocks) }

// Advance moves the innermost program counter past the current instruction.
func (f *Frame) Advance() { f.Top().PC++ }

// Enter pushes a nested block.
func (f *Frame) Enter(instrs []domain.Instruction, loop *Loop) {
	f.blocks = append(f.blocks, Block{Instrs: instrs, Loop: loop})
}

// Leave pops the innermost block and advances the enclosing one past the
// instruction that opened it. The root block is never popped.
func (f *Frame) Leave() {
	if len(f.blocks) <= 1 {
		return
	}
	f.blocks = f.blocks[:len(f.blocks)-1]
	f.Advance()
}

// Goal is the frame's trigger literal instantiated under its substitution.
func (f *Frame) Goal() domain.Literal {
	return f.Subst.ApplyLiteral(f.Trigger.Literal)
}

// References reports whether the frame works on, waits for or handles a goal
// unifying with g.
func (f *Frame) References(g domain.Literal) bool {
	if f.Trigger.Type == domain.AddGoal || f.Trigger.Type == domain.RemoveGoal {
		if matches(g, f.Goal()) {
			return true
		}
	}
	if f.Pending != nil && matches(g, *f.Pending) {
		return true
	}
	return f.Handles != nil && matches(g, *f.Handles)
}

func matches(pattern, l domain.Literal) bool {
	_, ok := unify.Literals(pattern, l, domain.EmptySubstitution())
	return ok
}
