package models

// Application is a row of approval_applications.
type Application struct {
	ApplicationID   string `db:"application_id"`
	TenantID        string `db:"tenant_id"`
	ApplicantID     string `db:"applicant_id"`
	ApplicantName   string `db:"applicant_name"`
	ApplicationType string `db:"application_type"`
	Title           string `db:"title"`
	Content         string `db:"content"`
	Status          string `db:"status"`
	CurrentStep     int    `db:"current_step"`
	TotalSteps      int    `db:"total_steps"`
	AuditFields
}

// WorkflowDefinition is a row of workflow_definitions.
type WorkflowDefinition struct {
	WorkflowDefinitionID string `db:"workflow_definition_id"`
	TenantID             string `db:"tenant_id"`
	ApplicationType      string `db:"application_type"`
	Name                 string `db:"name"`
	IsActive             bool   `db:"is_active"`
	AuditFields
}

// WorkflowStep is a row of workflow_definition_steps.
type WorkflowStep struct {
	WorkflowDefinitionID string `db:"workflow_definition_id"`
	StepNumber           int    `db:"step_number"`
	Role                 string `db:"role"`
	Name                 string `db:"name"`
}
