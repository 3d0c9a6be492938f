package domain_test

import (
	"testing"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steps(numbers ...int) []domain.ApprovalStep {
	out := make([]domain.ApprovalStep, len(numbers))
	for i, n := range numbers {
		out[i] = domain.ApprovalStep{StepNumber: n, ApproverID: "user-" + string(rune('a'+i)), ApproverRole: domain.RoleManager}
	}
	return out
}

func TestNewApprovalFlow(t *testing.T) {
	tests := []struct {
		name    string
		steps   []domain.ApprovalStep
		wantErr bool
	}{
		{name: "no steps", steps: nil, wantErr: true},
		{name: "single step", steps: steps(1)},
		{name: "five steps", steps: steps(1, 2, 3, 4, 5)},
		{name: "six steps", steps: steps(1, 2, 3, 4, 5, 6), wantErr: true},
		{name: "gap in numbering", steps: steps(1, 3), wantErr: true},
		{name: "starts at two", steps: steps(2, 3), wantErr: true},
		{name: "duplicate number", steps: steps(1, 1), wantErr: true},
		{name: "unordered but contiguous", steps: steps(2, 1, 3)},
		{name: "missing approver", steps: []domain.ApprovalStep{{StepNumber: 1}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, err := domain.NewApprovalFlow(tt.steps)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.steps), flow.Len())
			for i, s := range flow.Steps() {
				assert.Equal(t, i+1, s.StepNumber)
			}
		})
	}
}

func TestApprovalFlow_Step(t *testing.T) {
	flow, err := domain.NewApprovalFlow(steps(1, 2))
	require.NoError(t, err)

	s, ok := flow.Step(2)
	require.True(t, ok)
	assert.Equal(t, 2, s.StepNumber)
	_, ok = flow.Step(0)
	assert.False(t, ok)
	_, ok = flow.Step(3)
	assert.False(t, ok)
	assert.True(t, flow.Includes(s.ApproverID))
	assert.False(t, flow.Includes("someone-else"))
}

func TestApprovalPolicy_StepCount(t *testing.T) {
	p := domain.DefaultApprovalPolicy()
	require.NoError(t, p.Validate())

	tests := []struct {
		total string
		want  int
	}{
		{"0", 1},
		{"99999.99", 1},
		{"100000", 2},
		{"300000", 2},
		{"300000.01", 3},
		{"450000", 3},
	}
	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			assert.Equal(t, tt.want, p.StepCount(total))
			assert.Len(t, p.RolesFor(total), tt.want)
		})
	}
	assert.Equal(t, []string{domain.RoleManager, domain.RoleDirector, domain.RoleExecutive}, p.RolesFor(decimal.NewFromInt(450000)))
}

func TestApprovalPolicy_Validate(t *testing.T) {
	p := domain.DefaultApprovalPolicy()
	p.HighThreshold = decimal.NewFromInt(10)
	assert.ErrorIs(t, p.Validate(), apperrors.ErrValidation)

	p = domain.DefaultApprovalPolicy()
	p.StepRoles = []string{domain.RoleManager}
	assert.ErrorIs(t, p.Validate(), apperrors.ErrValidation)
}
