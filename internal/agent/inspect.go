package agent

import (
	"github.com/Harshitk-cp/agentspeak/internal/plan"
)

type BeliefView struct {
	Literal    string  `json:"literal"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

type FrameView struct {
	ID          uint64            `json:"id"`
	Plan        string            `json:"plan"`
	Trigger     string            `json:"trigger"`
	State       string            `json:"state"`
	Instruction string            `json:"instruction,omitempty"`
	Bindings    map[string]string `json:"bindings,omitempty"`
}

type IntentionView struct {
	ID     string      `json:"id"`
	Frames []FrameView `json:"frames"`
}

type PlanView struct {
	ID       int        `json:"id"`
	Label    string     `json:"label"`
	Trigger  string     `json:"trigger"`
	Priority int        `json:"priority,omitempty"`
	Atomic   bool       `json:"atomic,omitempty"`
	Stats    plan.Stats `json:"stats"`
}

// Snapshot is a read-only view of an agent's state.
type Snapshot struct {
	ID         string          `json:"id"`
	Cycle      uint64          `json:"cycle"`
	Sleeping   bool            `json:"sleeping"`
	Beliefs    []BeliefView    `json:"beliefs"`
	Pending    []string        `json:"pending"`
	Intentions []IntentionView `json:"intentions"`
	Plans      []PlanView      `json:"plans"`
}

func (a *Agent) Inspect() Snapshot {
	snap := Snapshot{
		ID:         a.id,
		Cycle:      a.cycle,
		Sleeping:   a.sleeping,
		Beliefs:    []BeliefView{},
		Pending:    []string{},
		Intentions: []IntentionView{},
		Plans:      make([]PlanView, 0, a.library.Len()),
	}
	for _, b := range a.beliefs.All() {
		snap.Beliefs = append(snap.Beliefs, BeliefView{
			Literal:    b.Literal.String(),
			Source:     string(b.Source),
			Confidence: b.Confidence,
		})
	}
	for _, t := range a.queue.Pending() {
		snap.Pending = append(snap.Pending, t.String())
	}
	for _, in := range a.intentions.All() {
		view := IntentionView{ID: in.ID.String()}
		for _, f := range in.Frames() {
			fv := FrameView{
				ID:      f.ID,
				Plan:    f.Plan.Label(),
				Trigger: f.Trigger.String(),
				State:   f.State.String(),
			}
			if instr, ok := f.Current(); ok {
				fv.Instruction = instr.String()
			}
			if f.Subst.Len() > 0 {
				fv.Bindings = make(map[string]string, f.Subst.Len())
				for k, v := range f.Subst.Resolved() {
					fv.Bindings[k] = v.String()
				}
			}
			view.Frames = append(view.Frames, fv)
		}
		snap.Intentions = append(snap.Intentions, view)
	}
	for id := 0; id < a.library.Len(); id++ {
		p, _ := a.library.Plan(id)
		snap.Plans = append(snap.Plans, PlanView{
			ID:       p.ID,
			Label:    p.Label(),
			Trigger:  p.Trigger.String() + p.Pattern.String(),
			Priority: p.Priority,
			Atomic:   p.Atomic,
			Stats:    a.library.Stats(id),
		})
	}
	return snap
}
