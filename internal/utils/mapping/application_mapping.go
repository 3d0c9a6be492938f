package mapping

import (
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/models"
)

// ToModelApplication converts an application state to its row
func ToModelApplication(s domain.ApplicationState) models.Application {
	return models.Application{
		ApplicationID:   s.ID,
		TenantID:        s.TenantID,
		ApplicantID:     s.ApplicantID,
		ApplicantName:   s.ApplicantName,
		ApplicationType: s.ApplicationType,
		Title:           s.Title,
		Content:         s.Content,
		Status:          string(s.Status),
		CurrentStep:     s.CurrentStep,
		TotalSteps:      s.TotalSteps,
		AuditFields:     ToModelAuditFields(s.AuditFields, s.Version),
	}
}

// ToDomainApplicationState assembles an application state from its row and decisions
func ToDomainApplicationState(m models.Application, decisions []models.Decision) domain.ApplicationState {
	return domain.ApplicationState{
		ID:              m.ApplicationID,
		TenantID:        m.TenantID,
		ApplicantID:     m.ApplicantID,
		ApplicantName:   m.ApplicantName,
		ApplicationType: m.ApplicationType,
		Title:           m.Title,
		Content:         m.Content,
		Status:          domain.ApplicationStatus(m.Status),
		CurrentStep:     m.CurrentStep,
		TotalSteps:      m.TotalSteps,
		Decisions:       ToDomainDecisions(decisions),
		Version:         m.Version,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelWorkflowDefinition converts a workflow definition state to its row and step rows
func ToModelWorkflowDefinition(s domain.WorkflowDefinitionState) (models.WorkflowDefinition, []models.WorkflowStep) {
	steps := make([]models.WorkflowStep, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = models.WorkflowStep{
			WorkflowDefinitionID: s.ID,
			StepNumber:           st.StepNumber,
			Role:                 st.Role,
			Name:                 st.Name,
		}
	}
	return models.WorkflowDefinition{
		WorkflowDefinitionID: s.ID,
		TenantID:             s.TenantID,
		ApplicationType:      s.ApplicationType,
		Name:                 s.Name,
		IsActive:             s.IsActive,
		AuditFields:          ToModelAuditFields(s.AuditFields, s.Version),
	}, steps
}

// ToDomainWorkflowDefinitionState assembles a workflow definition state from its rows
func ToDomainWorkflowDefinitionState(m models.WorkflowDefinition, steps []models.WorkflowStep) domain.WorkflowDefinitionState {
	s := domain.WorkflowDefinitionState{
		ID:              m.WorkflowDefinitionID,
		TenantID:        m.TenantID,
		ApplicationType: m.ApplicationType,
		Name:            m.Name,
		IsActive:        m.IsActive,
		Steps:           make([]domain.WorkflowStep, len(steps)),
		Version:         m.Version,
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
	for i, st := range steps {
		s.Steps[i] = domain.WorkflowStep{StepNumber: st.StepNumber, Role: st.Role, Name: st.Name}
	}
	return s
}
