package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/shopspring/decimal"
)

// MaxApprovalSteps bounds the length of an approval flow.
const MaxApprovalSteps = 5

// ApprovalStep binds one step of a purchase request flow to a concrete approver.
type ApprovalStep struct {
	StepNumber   int    `json:"stepNumber"`
	ApproverID   string `json:"approverId"`
	ApproverName string `json:"approverName"`
	ApproverRole string `json:"approverRole"`
}

// ApprovalFlow is the ordered list of approvers snapshotted onto a purchase request at
// submission.
type ApprovalFlow struct {
	steps []ApprovalStep
}

// NewApprovalFlow validates and orders steps. A flow has 1 to MaxApprovalSteps steps,
// numbered contiguously from 1, each with an approver.
func NewApprovalFlow(steps []ApprovalStep) (ApprovalFlow, error) {
	if len(steps) == 0 {
		return ApprovalFlow{}, fmt.Errorf("%w: approval flow requires at least one step", apperrors.ErrValidation)
	}
	if len(steps) > MaxApprovalSteps {
		return ApprovalFlow{}, fmt.Errorf("%w: approval flow allows at most %d steps, got %d", apperrors.ErrValidation, MaxApprovalSteps, len(steps))
	}

	ordered := make([]ApprovalStep, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StepNumber < ordered[j].StepNumber })

	for i, s := range ordered {
		if s.StepNumber != i+1 {
			return ApprovalFlow{}, fmt.Errorf("%w: approval steps must be numbered contiguously from 1, found step %d at position %d", apperrors.ErrValidation, s.StepNumber, i+1)
		}
		if strings.TrimSpace(s.ApproverID) == "" {
			return ApprovalFlow{}, fmt.Errorf("%w: approval step %d has no approver", apperrors.ErrValidation, s.StepNumber)
		}
	}
	return ApprovalFlow{steps: ordered}, nil
}

// Steps returns a copy of the ordered steps.
func (f ApprovalFlow) Steps() []ApprovalStep {
	out := make([]ApprovalStep, len(f.steps))
	copy(out, f.steps)
	return out
}

// Len is the number of steps.
func (f ApprovalFlow) Len() int { return len(f.steps) }

// IsEmpty is true before the first submission.
func (f ApprovalFlow) IsEmpty() bool { return len(f.steps) == 0 }

// Step returns the step with the given 1-based number.
func (f ApprovalFlow) Step(number int) (ApprovalStep, bool) {
	if number < 1 || number > len(f.steps) {
		return ApprovalStep{}, false
	}
	return f.steps[number-1], true
}

// Includes reports whether userID approves any step.
func (f ApprovalFlow) Includes(userID string) bool {
	for _, s := range f.steps {
		if s.ApproverID == userID {
			return true
		}
	}
	return false
}

// ApprovalPolicy decides how many approval steps a purchase request needs and which role
// each step requires.
type ApprovalPolicy struct {
	LowThreshold  decimal.Decimal
	HighThreshold decimal.Decimal
	StepRoles     []string
}

// DefaultApprovalPolicy returns the 100,000 / 300,000 thresholds with the
// Manager, Director, Executive chain.
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		LowThreshold:  decimal.NewFromInt(100000),
		HighThreshold: decimal.NewFromInt(300000),
		StepRoles:     []string{RoleManager, RoleDirector, RoleExecutive},
	}
}

// Validate checks that thresholds are ordered and every step count has a role.
func (p ApprovalPolicy) Validate() error {
	if p.LowThreshold.IsNegative() || p.HighThreshold.LessThan(p.LowThreshold) {
		return fmt.Errorf("%w: approval thresholds must satisfy 0 <= low <= high", apperrors.ErrValidation)
	}
	if len(p.StepRoles) < 3 || len(p.StepRoles) > MaxApprovalSteps {
		return fmt.Errorf("%w: approval policy needs between 3 and %d step roles", apperrors.ErrValidation, MaxApprovalSteps)
	}
	return nil
}

// StepCount returns 1 below the low threshold, 2 up to and including the high threshold
// and 3 above it.
func (p ApprovalPolicy) StepCount(total decimal.Decimal) int {
	switch {
	case total.LessThan(p.LowThreshold):
		return 1
	case total.LessThanOrEqual(p.HighThreshold):
		return 2
	default:
		return 3
	}
}

// RolesFor returns the required role for each step of a request with the given total.
func (p ApprovalPolicy) RolesFor(total decimal.Decimal) []string {
	n := p.StepCount(total)
	if n > len(p.StepRoles) {
		n = len(p.StepRoles)
	}
	roles := make([]string, n)
	copy(roles, p.StepRoles[:n])
	return roles
}
