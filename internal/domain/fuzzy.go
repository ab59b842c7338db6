package domain

import (
	"fmt"
	"math"
)

// FuzzyValue is a graded success indicator. A passing value carries a degree
// in [0,1]; crisp successes have degree 1. A failing value is a hard failure
// and may carry the error an action raised.
type FuzzyValue struct {
	Pass   bool
	Degree float64
	Err    error
}

// Truth converts a strict boolean into a crisp fuzzy value.
func Truth(ok bool) FuzzyValue {
	if ok {
		return FuzzyValue{Pass: true, Degree: 1}
	}
	return FuzzyValue{}
}

// Graded returns a passing value with the given degree clamped to [0,1].
func Graded(degree float64) FuzzyValue {
	if math.IsNaN(degree) {
		degree = 0
	}
	return FuzzyValue{Pass: true, Degree: math.Max(0, math.Min(1, degree))}
}

// Failed returns a hard failure carrying err as its payload.
func Failed(err error) FuzzyValue {
	return FuzzyValue{Err: err}
}

func (v FuzzyValue) Failed() bool { return !v.Pass }

func (v FuzzyValue) String() string {
	if v.Pass {
		return fmt.Sprintf("pass(%.3g)", v.Degree)
	}
	if v.Err != nil {
		return fmt.Sprintf("fail(%v)", v.Err)
	}
	return "fail"
}
