package agent

import (
	"github.com/Harshitk-cp/agentspeak/internal/fuzzy"
	"github.com/Harshitk-cp/agentspeak/internal/plan"
)

const DefaultMaxLoopIterations = 10000

// Config holds the engine options of one agent.
type Config struct {
	// GuardAggregation combines the values of conjunctive guard parts.
	GuardAggregation fuzzy.Aggregation
	// RankAggregation ranks competing applicable plans.
	RankAggregation fuzzy.Aggregation
	// ParallelSelection runs every top-level candidate reaching Threshold
	// as its own intention instead of only the winner.
	ParallelSelection bool
	Threshold         float64
	MaxRuleDepth      int
	MaxLoopIterations int
	// PriorityQueue orders pending triggers by priority instead of FIFO.
	PriorityQueue   bool
	AllowDuplicates bool
}

func DefaultConfig() Config {
	return Config{
		GuardAggregation:  fuzzy.All{},
		RankAggregation:   fuzzy.Max{},
		MaxRuleDepth:      plan.DefaultMaxRuleDepth,
		MaxLoopIterations: DefaultMaxLoopIterations,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GuardAggregation == nil {
		c.GuardAggregation = d.GuardAggregation
	}
	if c.RankAggregation == nil {
		c.RankAggregation = d.RankAggregation
	}
	if c.MaxRuleDepth <= 0 {
		c.MaxRuleDepth = d.MaxRuleDepth
	}
	if c.MaxLoopIterations <= 0 {
		c.MaxLoopIterations = d.MaxLoopIterations
	}
	return c
}
