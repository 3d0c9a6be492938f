package domain

import "github.com/shopspring/decimal"

type PurchaseRequestCreated struct {
	EventMeta
	TenantID    string          `json:"tenantId"`
	RequesterID string          `json:"requesterId"`
	Title       string          `json:"title"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (PurchaseRequestCreated) EventType() string { return EventPurchaseRequestCreated }

type PurchaseRequestEdited struct {
	EventMeta
	EditedBy    string          `json:"editedBy"`
	Title       string          `json:"title"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (PurchaseRequestEdited) EventType() string { return EventPurchaseRequestEdited }

type PurchaseRequestSubmitted struct {
	EventMeta
	SubmittedBy string          `json:"submittedBy"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Steps       []ApprovalStep  `json:"steps"`
}

func (PurchaseRequestSubmitted) EventType() string { return EventPurchaseRequestSubmitted }

type PurchaseRequestStepApproved struct {
	EventMeta
	StepNumber int    `json:"stepNumber"`
	ApproverID string `json:"approverId"`
	NextStep   int    `json:"nextStep"`
}

func (PurchaseRequestStepApproved) EventType() string { return EventPurchaseRequestStepApproved }

// PurchaseRequestApproved is raised once, when the last step approves.
type PurchaseRequestApproved struct {
	EventMeta
	TenantID    string          `json:"tenantId"`
	RequesterID string          `json:"requesterId"`
	ApproverID  string          `json:"approverId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (PurchaseRequestApproved) EventType() string { return EventPurchaseRequestApproved }

type PurchaseRequestRejected struct {
	EventMeta
	StepNumber int    `json:"stepNumber"`
	RejectedBy string `json:"rejectedBy"`
	Reason     string `json:"reason"`
}

func (PurchaseRequestRejected) EventType() string { return EventPurchaseRequestRejected }

type PurchaseRequestReturned struct {
	EventMeta
	StepNumber int    `json:"stepNumber"`
	ReturnedBy string `json:"returnedBy"`
	Reason     string `json:"reason"`
}

func (PurchaseRequestReturned) EventType() string { return EventPurchaseRequestReturned }

type PurchaseRequestResubmitted struct {
	EventMeta
	ResubmittedBy string          `json:"resubmittedBy"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Steps         []ApprovalStep  `json:"steps"`
}

func (PurchaseRequestResubmitted) EventType() string { return EventPurchaseRequestResubmitted }

type PurchaseRequestCancelled struct {
	EventMeta
	CancelledBy string `json:"cancelledBy"`
	Reason      string `json:"reason,omitempty"`
}

func (PurchaseRequestCancelled) EventType() string { return EventPurchaseRequestCancelled }
