package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
)

// WorkflowStep is one role-bound step of a generic approval workflow.
type WorkflowStep struct {
	StepNumber int    `json:"stepNumber"`
	Role       string `json:"role"`
	Name       string `json:"name"`
}

// WorkflowDefinitionState is the persisted shape of a workflow definition.
type WorkflowDefinitionState struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenantId"`
	ApplicationType string         `json:"applicationType"`
	Name            string         `json:"name"`
	IsActive        bool           `json:"isActive"`
	Steps           []WorkflowStep `json:"steps"`
	Version         int64          `json:"version"`
	AuditFields
}

// WorkflowDefinition describes the steps an application of a given type goes through.
// At most one definition per tenant and application type is active.
type WorkflowDefinition struct {
	aggregateRoot
	state WorkflowDefinitionState
}

// NewWorkflowDefinition validates steps and creates an inactive definition.
func NewWorkflowDefinition(id string, author Actor, applicationType, name string, steps []WorkflowStep, now time.Time) (*WorkflowDefinition, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: workflow definition id is required", apperrors.ErrValidation)
	}
	applicationType = strings.TrimSpace(applicationType)
	if applicationType == "" {
		return nil, fmt.Errorf("%w: application type is required", apperrors.ErrValidation)
	}
	ordered, err := validateWorkflowSteps(steps)
	if err != nil {
		return nil, err
	}
	return &WorkflowDefinition{
		state: WorkflowDefinitionState{
			ID:              id,
			TenantID:        author.TenantID,
			ApplicationType: applicationType,
			Name:            strings.TrimSpace(name),
			Steps:           ordered,
			AuditFields:     newAuditFields(author.UserID, now),
		},
	}, nil
}

// RestoreWorkflowDefinition rebuilds a definition from persisted state.
func RestoreWorkflowDefinition(s WorkflowDefinitionState) *WorkflowDefinition {
	wd := &WorkflowDefinition{state: s.clone()}
	wd.version = s.Version
	return wd
}

func validateWorkflowSteps(steps []WorkflowStep) ([]WorkflowStep, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: workflow definition requires at least one step", apperrors.ErrValidation)
	}
	ordered := make([]WorkflowStep, len(steps))
	copy(ordered, steps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].StepNumber < ordered[j].StepNumber })
	for i, s := range ordered {
		if s.StepNumber != i+1 {
			return nil, fmt.Errorf("%w: workflow steps must be numbered contiguously from 1, found step %d at position %d", apperrors.ErrValidation, s.StepNumber, i+1)
		}
		if strings.TrimSpace(s.Role) == "" {
			return nil, fmt.Errorf("%w: workflow step %d has no role", apperrors.ErrValidation, s.StepNumber)
		}
	}
	return ordered, nil
}

func (s WorkflowDefinitionState) clone() WorkflowDefinitionState {
	c := s
	c.Steps = append([]WorkflowStep(nil), s.Steps...)
	return c
}

func (wd *WorkflowDefinition) AggregateType() string { return EntityWorkflowDefinition }
func (wd *WorkflowDefinition) AggregateID() string   { return wd.state.ID }
func (wd *WorkflowDefinition) Snapshot() any         { return wd.State() }

// State returns a deep copy of the persisted shape.
func (wd *WorkflowDefinition) State() WorkflowDefinitionState {
	s := wd.state.clone()
	s.Version = wd.version
	return s
}

func (wd *WorkflowDefinition) ID() string              { return wd.state.ID }
func (wd *WorkflowDefinition) TenantID() string        { return wd.state.TenantID }
func (wd *WorkflowDefinition) ApplicationType() string { return wd.state.ApplicationType }
func (wd *WorkflowDefinition) IsActive() bool          { return wd.state.IsActive }
func (wd *WorkflowDefinition) StepCount() int          { return len(wd.state.Steps) }

// Step returns the step with the given 1-based number.
func (wd *WorkflowDefinition) Step(number int) (WorkflowStep, bool) {
	if number < 1 || number > len(wd.state.Steps) {
		return WorkflowStep{}, false
	}
	return wd.state.Steps[number-1], true
}

// Activate marks the definition as the one used for new submissions of its type.
func (wd *WorkflowDefinition) Activate(actor Actor, now time.Time) {
	if wd.state.IsActive {
		return
	}
	wd.state.IsActive = true
	wd.state.touch(actor.UserID, now)
	wd.raise(WorkflowDefinitionActivated{
		EventMeta:       newEventMeta(wd.state.ID, now),
		TenantID:        wd.state.TenantID,
		ApplicationType: wd.state.ApplicationType,
		StepCount:       len(wd.state.Steps),
	})
}

// Deactivate retires the definition. Applications already in review keep resolving roles
// from whichever definition is active when they are approved.
func (wd *WorkflowDefinition) Deactivate(actor Actor, now time.Time) {
	if !wd.state.IsActive {
		return
	}
	wd.state.IsActive = false
	wd.state.touch(actor.UserID, now)
	wd.raise(WorkflowDefinitionDeactivated{
		EventMeta:       newEventMeta(wd.state.ID, now),
		TenantID:        wd.state.TenantID,
		ApplicationType: wd.state.ApplicationType,
	})
}

// CanDefineWorkflow allows tenant admins to replace workflow definitions.
func CanDefineWorkflow(actor Actor) BoundaryDecision {
	if actor.TenantID == "" {
		return Deny("actor has no tenant")
	}
	if !actor.HasRole(RoleAdmin) {
		return Deny("only an admin can define workflows")
	}
	return Allow()
}

type WorkflowDefinitionActivated struct {
	EventMeta
	TenantID        string `json:"tenantId"`
	ApplicationType string `json:"applicationType"`
	StepCount       int    `json:"stepCount"`
}

func (WorkflowDefinitionActivated) EventType() string { return EventWorkflowDefinitionActivated }

type WorkflowDefinitionDeactivated struct {
	EventMeta
	TenantID        string `json:"tenantId"`
	ApplicationType string `json:"applicationType"`
}

func (WorkflowDefinitionDeactivated) EventType() string { return EventWorkflowDefinitionDeactivated }
