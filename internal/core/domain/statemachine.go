package domain

import (
	"fmt"

	"github.com/SscSPs/procureflow/internal/apperrors"
)

// InvalidTransitionError is returned when a status change is not in the adjacency table.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

// Unwrap classifies illegal transitions as business rule violations.
func (e *InvalidTransitionError) Unwrap() error {
	return apperrors.ErrBusinessRule
}

// StateMachine enforces legal status transitions from a fixed adjacency table.
type StateMachine[S ~string] struct {
	entity      string
	transitions map[S][]S
}

// NewStateMachine builds a machine over transitions. States absent from the table, or
// mapped to an empty list, are terminal.
func NewStateMachine[S ~string](entity string, transitions map[S][]S) StateMachine[S] {
	return StateMachine[S]{entity: entity, transitions: transitions}
}

// CanTransition reports whether from -> to is allowed.
func (m StateMachine[S]) CanTransition(from, to S) bool {
	for _, next := range m.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an *InvalidTransitionError when from -> to is not allowed.
func (m StateMachine[S]) ValidateTransition(from, to S) error {
	if m.CanTransition(from, to) {
		return nil
	}
	return &InvalidTransitionError{Entity: m.entity, From: string(from), To: string(to)}
}

// AllowedTransitions lists the states reachable from `from` in one step.
func (m StateMachine[S]) AllowedTransitions(from S) []S {
	next := m.transitions[from]
	out := make([]S, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no transition leaves s.
func (m StateMachine[S]) IsTerminal(s S) bool {
	return len(m.transitions[s]) == 0
}
