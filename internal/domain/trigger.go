package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// TriggerType classifies the change a trigger describes.
type TriggerType int

const (
	AddBelief TriggerType = iota + 1
	RemoveBelief
	AddGoal
	RemoveGoal
	AddGoalAchieved
	AddGoalFailed
)

func (t TriggerType) String() string {
	switch t {
	case AddBelief:
		return "+"
	case RemoveBelief:
		return "-"
	case AddGoal:
		return "+!"
	case RemoveGoal:
		return "-!"
	case AddGoalAchieved:
		return "achieved"
	case AddGoalFailed:
		return "failed"
	default:
		return "?"
	}
}

// IsGoal reports whether the trigger type concerns a goal rather than a belief.
func (t TriggerType) IsGoal() bool {
	return t == AddGoal || t == RemoveGoal || t == AddGoalAchieved || t == AddGoalFailed
}

// Origin identifies the suspended frame that posted a sub-goal.
type Origin struct {
	Intention uuid.UUID
	Frame     uint64
}

// Trigger is an immutable event description.
type Trigger struct {
	Type     TriggerType
	Literal  Literal
	Priority int
	Origin   *Origin
	Cause    error
}

func NewTrigger(t TriggerType, lit Literal) Trigger {
	return Trigger{Type: t, Literal: lit}
}

func (t Trigger) String() string {
	switch t.Type {
	case AddGoalAchieved, AddGoalFailed:
		return fmt.Sprintf("%s(%s)", t.Type, t.Literal)
	}
	return t.Type.String() + t.Literal.String()
}
