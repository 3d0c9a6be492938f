package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest is a row of purchase_requests.
type PurchaseRequest struct {
	PurchaseRequestID string `db:"purchase_request_id"`
	TenantID          string `db:"tenant_id"`
	RequesterID       string `db:"requester_id"`
	RequesterName     string `db:"requester_name"`
	Title             string `db:"title"`
	Description       string `db:"description"`
	Status            string `db:"status"`
	CurrentStep       int    `db:"current_step"`
	AuditFields
}

// PurchaseRequestItem is a row of purchase_request_items.
type PurchaseRequestItem struct {
	PurchaseRequestID string          `db:"purchase_request_id"`
	LineNumber        int             `db:"line_number"`
	Description       string          `db:"description"`
	Quantity          decimal.Decimal `db:"quantity"`
	UnitPrice         decimal.Decimal `db:"unit_price"`
}

// ApprovalStep is a row of purchase_request_approval_steps.
type ApprovalStep struct {
	PurchaseRequestID string `db:"purchase_request_id"`
	StepNumber        int    `db:"step_number"`
	ApproverID        string `db:"approver_id"`
	ApproverName      string `db:"approver_name"`
	ApproverRole      string `db:"approver_role"`
}

// Decision is a row of approval_decisions. EntityType tells purchase requests and
// applications apart.
type Decision struct {
	EntityType string    `db:"entity_type"`
	EntityID   string    `db:"entity_id"`
	Seq        int       `db:"seq"`
	StepNumber int       `db:"step_number"`
	Action     string    `db:"action"`
	ActorID    string    `db:"actor_id"`
	ActorName  string    `db:"actor_name"`
	Comment    string    `db:"comment"`
	DecidedAt  time.Time `db:"decided_at"`
}
