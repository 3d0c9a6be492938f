package domain

type ApplicationCreated struct {
	EventMeta
	TenantID        string `json:"tenantId"`
	ApplicantID     string `json:"applicantId"`
	ApplicationType string `json:"applicationType"`
	Title           string `json:"title"`
}

func (ApplicationCreated) EventType() string { return EventApplicationCreated }

type ApplicationEdited struct {
	EventMeta
	EditedBy string `json:"editedBy"`
	Title    string `json:"title"`
}

func (ApplicationEdited) EventType() string { return EventApplicationEdited }

type ApplicationSubmitted struct {
	EventMeta
	SubmittedBy          string `json:"submittedBy"`
	WorkflowDefinitionID string `json:"workflowDefinitionId"`
	TotalSteps           int    `json:"totalSteps"`
}

func (ApplicationSubmitted) EventType() string { return EventApplicationSubmitted }

type ApplicationStepApproved struct {
	EventMeta
	StepNumber int    `json:"stepNumber"`
	ApproverID string `json:"approverId"`
	NextStep   int    `json:"nextStep"`
}

func (ApplicationStepApproved) EventType() string { return EventApplicationStepApproved }

type ApplicationApproved struct {
	EventMeta
	TenantID        string `json:"tenantId"`
	ApplicantID     string `json:"applicantId"`
	ApplicationType string `json:"applicationType"`
	ApproverID      string `json:"approverId"`
}

func (ApplicationApproved) EventType() string { return EventApplicationApproved }

type ApplicationRejected struct {
	EventMeta
	StepNumber int    `json:"stepNumber"`
	RejectedBy string `json:"rejectedBy"`
	Reason     string `json:"reason"`
}

func (ApplicationRejected) EventType() string { return EventApplicationRejected }

type ApplicationReturned struct {
	EventMeta
	StepNumber int    `json:"stepNumber"`
	ReturnedBy string `json:"returnedBy"`
	Reason     string `json:"reason"`
}

func (ApplicationReturned) EventType() string { return EventApplicationReturned }

type ApplicationResubmitted struct {
	EventMeta
	ResubmittedBy        string `json:"resubmittedBy"`
	WorkflowDefinitionID string `json:"workflowDefinitionId"`
	TotalSteps           int    `json:"totalSteps"`
}

func (ApplicationResubmitted) EventType() string { return EventApplicationResubmitted }

type ApplicationCancelled struct {
	EventMeta
	CancelledBy string `json:"cancelledBy"`
	Reason      string `json:"reason,omitempty"`
}

func (ApplicationCancelled) EventType() string { return EventApplicationCancelled }
