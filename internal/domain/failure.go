package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotGround        = errors.New("literal is not ground")
	ErrUnknownAction    = errors.New("unknown action")
	ErrNoApplicablePlan = errors.New("no applicable plan")
	ErrLoopLimit        = errors.New("loop iteration limit exceeded")
	ErrRuleDepth        = errors.New("rule recursion depth exceeded")
	ErrNotEvaluable     = errors.New("operand cannot be evaluated")
)

// FailureKind is the error taxonomy of the reasoning engine.
type FailureKind string

const (
	UnificationFailure     FailureKind = "unification_failure"
	GuardEvaluationFailure FailureKind = "guard_evaluation_failure"
	NoApplicablePlan       FailureKind = "no_applicable_plan"
	ActionExecutionError   FailureKind = "action_execution_error"
	// ActionDeclined is an action that completed without error but returned
	// a false value.
	ActionDeclined         FailureKind = "action_declined"
	UserRaisedFailure      FailureKind = "user_raised_failure"
	InvalidInstruction     FailureKind = "invalid_instruction"
	UnrecoverableFailure   FailureKind = "unrecoverable_failure"
)

// Failure describes why an instruction, goal or intention failed.
type Failure struct {
	Kind      FailureKind
	Goal      *Literal
	Plan      string
	Detail    string
	Cause     error
	Intention string
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Plan != "" {
		msg += " in plan " + f.Plan
	}
	if f.Goal != nil {
		msg += " for goal " + f.Goal.String()
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Cause != nil {
		msg += fmt.Sprintf(": %v", f.Cause)
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Cause }

// Escalate wraps f as an unrecoverable failure, keeping f as its cause.
func (f *Failure) Escalate(intention string) *Failure {
	return &Failure{
		Kind:      UnrecoverableFailure,
		Goal:      f.Goal,
		Plan:      f.Plan,
		Detail:    string(f.Kind),
		Cause:     f,
		Intention: intention,
	}
}
