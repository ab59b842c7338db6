package agent

import (
	"time"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

// Observer receives engine events, typically to export metrics.
type Observer interface {
	StepCompleted(agentID string, out CycleOutcome, took time.Duration)
	ActionInvoked(agentID string, name string, value domain.FuzzyValue, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) StepCompleted(string, CycleOutcome, time.Duration) {}

func (nopObserver) ActionInvoked(string, string, domain.FuzzyValue, time.Duration) {}
