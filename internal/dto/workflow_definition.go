package dto

import (
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// WorkflowStepInput is one step of a definition.
type WorkflowStepInput struct {
	StepNumber int    `json:"stepNumber" validate:"required,min=1"`
	Role       string `json:"role" validate:"required,max=100"`
	Name       string `json:"name" validate:"max=200"`
}

// DefineWorkflow is the payload of workflow_definition.define. It replaces the active
// definition of the application type.
type DefineWorkflow struct {
	ApplicationType string              `json:"-" validate:"required,max=100"`
	Name            string              `json:"name" validate:"required,max=200"`
	Steps           []WorkflowStepInput `json:"steps" validate:"required,min=1,max=20,dive"`
}

// ToWorkflowSteps converts the input steps to domain steps.
func ToWorkflowSteps(in []WorkflowStepInput) []domain.WorkflowStep {
	steps := make([]domain.WorkflowStep, len(in))
	for i, s := range in {
		steps[i] = domain.WorkflowStep{StepNumber: s.StepNumber, Role: s.Role, Name: s.Name}
	}
	return steps
}

// GetWorkflow is the payload of workflow_definition.get.
type GetWorkflow struct {
	ApplicationType string `json:"-" validate:"required"`
}

type WorkflowDefinitionView struct {
	ID              string                `json:"id"`
	TenantID        string                `json:"tenantId"`
	ApplicationType string                `json:"applicationType"`
	Name            string                `json:"name"`
	IsActive        bool                  `json:"isActive"`
	Steps           []domain.WorkflowStep `json:"steps"`
	Version         int64                 `json:"version"`
	CreatedAt       time.Time             `json:"createdAt"`
	CreatedBy       string                `json:"createdBy"`
}

func ToWorkflowDefinitionView(def *domain.WorkflowDefinition) WorkflowDefinitionView {
	s := def.State()
	return WorkflowDefinitionView{
		ID:              s.ID,
		TenantID:        s.TenantID,
		ApplicationType: s.ApplicationType,
		Name:            s.Name,
		IsActive:        s.IsActive,
		Steps:           s.Steps,
		Version:         s.Version,
		CreatedAt:       s.CreatedAt,
		CreatedBy:       s.CreatedBy,
	}
}
