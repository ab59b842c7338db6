// Package fuzzy provides the aggregation policies that combine and rank
// graded fuzzy values.
package fuzzy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Harshitk-cp/agentspeak/internal/domain"
)

var ErrUnknownAggregation = errors.New("unknown aggregation")

// Aggregation combines fuzzy values into one and ranks competing values.
type Aggregation interface {
	Name() string
	// Combine folds values into a single result.
	Combine(values []domain.FuzzyValue) domain.FuzzyValue
	// Rank returns the indices of the passing values, best first. Equal
	// scores keep their input order.
	Rank(values []domain.FuzzyValue) []int
}

// ByName resolves a configured aggregation policy.
func ByName(name string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "all", "and":
		return All{}, nil
	case "any", "or":
		return Any{}, nil
	case "max", "":
		return Max{}, nil
	case "min":
		return Min{}, nil
	case "weighted_sum", "sum":
		return WeightedSum{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAggregation, name)
}

// All is logical AND; the combined degree is the weakest passing degree.
type All struct{}

func (All) Name() string { return "all" }

func (All) Combine(values []domain.FuzzyValue) domain.FuzzyValue {
	out := domain.Truth(true)
	for _, v := range values {
		if v.Failed() {
			return v
		}
		if v.Degree < out.Degree {
			out.Degree = v.Degree
		}
	}
	return out
}

func (All) Rank(values []domain.FuzzyValue) []int { return rank(values, true) }

// Any is logical OR; the combined degree is the strongest passing degree.
type Any struct{}

func (Any) Name() string { return "any" }

func (Any) Combine(values []domain.FuzzyValue) domain.FuzzyValue {
	return best(values, func(a, b float64) bool { return a > b })
}

func (Any) Rank(values []domain.FuzzyValue) []int { return rank(values, true) }

// Max ranks the highest degree first.
type Max struct{}

func (Max) Name() string { return "max" }

func (Max) Combine(values []domain.FuzzyValue) domain.FuzzyValue {
	return best(values, func(a, b float64) bool { return a > b })
}

func (Max) Rank(values []domain.FuzzyValue) []int { return rank(values, true) }

// Min ranks the lowest degree first.
type Min struct{}

func (Min) Name() string { return "min" }

func (Min) Combine(values []domain.FuzzyValue) domain.FuzzyValue {
	return best(values, func(a, b float64) bool { return a < b })
}

func (Min) Rank(values []domain.FuzzyValue) []int { return rank(values, false) }

// WeightedSum averages degrees with optional per-position weights; missing
// weights default to 1 and failing values contribute a degree of 0.
type WeightedSum struct {
	Weights []float64
}

func (WeightedSum) Name() string { return "weighted_sum" }

func (w WeightedSum) Combine(values []domain.FuzzyValue) domain.FuzzyValue {
	if len(values) == 0 {
		return domain.Truth(true)
	}
	var sum, total float64
	passed := false
	var firstErr error
	for i, v := range values {
		weight := 1.0
		if i < len(w.Weights) {
			weight = w.Weights[i]
		}
		total += weight
		if v.Failed() {
			if firstErr == nil {
				firstErr = v.Err
			}
			continue
		}
		passed = true
		sum += weight * v.Degree
	}
	if !passed {
		return domain.Failed(firstErr)
	}
	if total <= 0 {
		return domain.Graded(0)
	}
	return domain.Graded(sum / total)
}

func (w WeightedSum) Rank(values []domain.FuzzyValue) []int {
	if len(w.Weights) == 0 {
		return rank(values, true)
	}
	weighted := make([]domain.FuzzyValue, len(values))
	for i, v := range values {
		weighted[i] = v
		if i < len(w.Weights) && v.Pass {
			weighted[i].Degree = v.Degree * w.Weights[i]
		}
	}
	return rank(weighted, true)
}

func best(values []domain.FuzzyValue, better func(a, b float64) bool) domain.FuzzyValue {
	if len(values) == 0 {
		return domain.Truth(true)
	}
	var out domain.FuzzyValue
	found := false
	var firstErr error
	for _, v := range values {
		if v.Failed() {
			if firstErr == nil {
				firstErr = v.Err
			}
			continue
		}
		if !found || better(v.Degree, out.Degree) {
			out = v
			found = true
		}
	}
	if !found {
		return domain.Failed(firstErr)
	}
	return out
}

func rank(values []domain.FuzzyValue, descending bool) []int {
	idx := make([]int, 0, len(values))
	for i, v := range values {
		if v.Pass {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if descending {
			return values[idx[a]].Degree > values[idx[b]].Degree
		}
		return values[idx[a]].Degree < values[idx[b]].Degree
	})
	return idx
}
