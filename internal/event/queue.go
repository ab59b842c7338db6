// Package event holds the per-agent trigger queue.
package event

import (
	"container/heap"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

type item struct {
	trigger domain.Trigger
	seq     uint64
}

// Queue is FIFO by default. With priority ordering enabled, higher trigger
// priorities are dequeued first and arrival order breaks ties. Queue is not
// safe for concurrent use.
type Queue struct {
	items    []item
	seq      uint64
	priority bool
}

type Option func(*Queue)

// WithPriority orders the queue by trigger priority.
func WithPriority() Option {
	return func(q *Queue) { q.priority = true }
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Enqueue(t domain.Trigger) {
	q.seq++
	it := item{trigger: t, seq: q.seq}
	if q.priority {
		heap.Push((*byPriority)(q), it)
		return
	}
	q.items = append(q.items, it)
}

func (q *Queue) Dequeue() (domain.Trigger, bool) {
	if len(q.items) == 0 {
		return domain.Trigger{}, false
	}
	if q.priority {
		return heap.Pop((*byPriority)(q)).(item).trigger, true
	}
	it := q.items[0]
	q.items[0] = item{}
	q.items = q.items[1:]
	return it.trigger, true
}

func (q *Queue) Len() int { return len(q.items) }

// RemoveIf drops every queued trigger matching fn and returns how many were
// removed.
func (q *Queue) RemoveIf(fn func(domain.Trigger) bool) int {
	kept := q.items[:0]
	removed := 0
	for _, it := range q.items {
		if fn(it.trigger) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = item{}
	}
	q.items = kept
	if q.priority && removed > 0 {
		heap.Init((*byPriority)(q))
	}
	return removed
}

// Pending returns the queued triggers in dequeue order.
func (q *Queue) Pending() []domain.Trigger {
	items := make([]item, len(q.items))
	copy(items, q.items)
	if q.priority {
		sortItems(items)
	}
	out := make([]domain.Trigger, len(items))
	for i, it := range items {
		out[i] = it.trigger
	}
	return out
}

type byPriority Queue

func (h *byPriority) Len() int { return len(h.items) }

func (h *byPriority) Less(i, j int) bool { return before(h.items[i], h.items[j]) }

func (h *byPriority) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *byPriority) Push(x any) { h.items = append(h.items, x.(item)) }

func (h *byPriority) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items[n-1] = item{}
	h.items = h.items[:n-1]
	return it
}

func before(a, b item) bool {
	if a.trigger.Priority != b.trigger.Priority {
		return a.trigger.Priority > b.trigger.Priority
	}
	return a.seq < b.seq
}

func sortItems(items []item) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && before(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
