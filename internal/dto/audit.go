package dto

import (
	"encoding/json"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// ListAuditLog is the payload of audit_log.list.
type ListAuditLog struct {
	EntityType string `json:"-" validate:"required,oneof=PurchaseRequest ApprovalApplication WorkflowDefinition"`
	EntityID   string `json:"-" validate:"required"`
	Limit      int    `form:"limit" validate:"omitempty,min=1,max=200"`
	PageToken  string `form:"pageToken"`
}

type AuditLogEntryView struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	UserName      string          `json:"userName"`
	Action        string          `json:"action"`
	EntityType    string          `json:"entityType"`
	EntityID      string          `json:"entityId"`
	OldValues     json.RawMessage `json:"oldValues,omitempty" swaggertype:"object"`
	NewValues     json.RawMessage `json:"newValues,omitempty" swaggertype:"object"`
	CorrelationID string          `json:"correlationId"`
	RequestID     string          `json:"requestId"`
	TimestampUTC  time.Time       `json:"timestampUtc"`
}

// AuditLogPage is one page of audit entries, oldest first.
type AuditLogPage struct {
	Entries       []AuditLogEntryView `json:"entries"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
}

func ToAuditLogEntryView(e domain.AuditLogEntry) AuditLogEntryView {
	return AuditLogEntryView{
		ID:            e.ID,
		UserID:        e.UserID,
		UserName:      e.UserName,
		Action:        e.Action,
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		OldValues:     e.OldValues,
		NewValues:     e.NewValues,
		CorrelationID: e.CorrelationID,
		RequestID:     e.RequestID,
		TimestampUTC:  e.TimestampUTC,
	}
}
