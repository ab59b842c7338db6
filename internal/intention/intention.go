package intention

import (
	"github.com/google/uuid"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// Intention is a stack of frames; the top frame is the one that executes.
type Intention struct {
	ID     uuid.UUID
	frames []*Frame
}

func New(root *Frame) *Intention {
	return &Intention{ID: uuid.New(), frames: []*Frame{root}}
}

func (in *Intention) Top() *Frame {
	if len(in.frames) == 0 {
		return nil
	}
	return in.frames[len(in.frames)-1]
}

func (in *Intention) Push(f *Frame) { in.frames = append(in.frames, f) }

func (in *Intention) Pop() *Frame {
	if len(in.frames) == 0 {
		return nil
	}
	f := in.frames[len(in.frames)-1]
	in.frames[len(in.frames)-1] = nil
	in.frames = in.frames[:len(in.frames)-1]
	return f
}

func (in *Intention) Empty() bool { return len(in.frames) == 0 }

func (in *Intention) Len() int { return len(in.frames) }

// Frames returns the frames bottom to top.
func (in *Intention) Frames() []*Frame {
	out := make([]*Frame, len(in.frames))
	copy(out, in.frames)
	return out
}

// Runnable reports whether the top frame can execute an instruction.
func (in *Intention) Runnable() bool {
	top := in.Top()
	return top != nil && (top.State == Ready || top.State == Running)
}

func (in *Intention) References(g domain.Literal) bool {
	for _, f := range in.frames {
		if f.References(g) {
			return true
		}
	}
	return false
}
