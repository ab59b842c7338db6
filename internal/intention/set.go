package intention

import (
	"github.com/google/uuid"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// Set holds an agent's active intentions in creation order and schedules them
// round robin.
type Set struct {
	list    []*Intention
	next    int
	frameID uint64
}

func NewSet() *Set { return &Set{} }

// NextFrameID returns a frame id unique within the set.
func (s *Set) NextFrameID() uint64 {
	s.frameID++
	return s.frameID
}

func (s *Set) Add(in *Intention) { s.list = append(s.list, in) }

func (s *Set) Get(id uuid.UUID) (*Intention, bool) {
	for _, in := range s.list {
		if in.ID == id {
			return in, true
		}
	}
	return nil, false
}

func (s *Set) Remove(id uuid.UUID) bool {
	for i, in := range s.list {
		if in.ID != id {
			continue
		}
		s.list = append(s.list[:i:i], s.list[i+1:]...)
		if s.next > i {
			s.next--
		}
		return true
	}
	return false
}

func (s *Set) Len() int { return len(s.list) }

// All returns the intentions in creation order.
func (s *Set) All() []*Intention {
	out := make([]*Intention, len(s.list))
	copy(out, s.list)
	return out
}

// Next returns the next runnable intention after the one served last.
func (s *Set) Next() (*Intention, bool) {
	n := len(s.list)
	for i := 0; i < n; i++ {
		idx := (s.next + i) % n
		if s.list[idx].Runnable() {
			s.next = (idx + 1) % n
			return s.list[idx], true
		}
	}
	return nil, false
}

// Cancel removes every intention with a frame referencing a goal unifying
// with g and returns the removed intentions.
func (s *Set) Cancel(g domain.Literal) []*Intention {
	var removed []*Intention
	for _, in := range s.All() {
		if in.References(g) {
			s.Remove(in.ID)
			removed = append(removed, in)
		}
	}
	return removed
}

// Backs reports whether any intention references g.
func (s *Set) Backs(g domain.Literal) bool {
	for _, in := range s.list {
		if in.References(g) {
			return true
		}
	}
	return false
}
