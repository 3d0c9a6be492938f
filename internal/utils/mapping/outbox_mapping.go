package mapping

import (
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/models"
)

// ToModelOutboxMessage converts a domain OutboxMessage to a model OutboxMessage
func ToModelOutboxMessage(d domain.OutboxMessage) models.OutboxMessage {
	return models.OutboxMessage{
		OutboxMessageID: d.ID,
		Type:            d.Type,
		Content:         d.Content,
		OccurredAtUTC:   d.OccurredAtUTC,
		ProcessedAtUTC:  d.ProcessedAtUTC,
		Error:           d.Error,
		RetryCount:      d.RetryCount,
	}
}

// ToDomainOutboxMessage converts a model OutboxMessage to a domain OutboxMessage
func ToDomainOutboxMessage(m models.OutboxMessage) domain.OutboxMessage {
	d := domain.OutboxMessage{
		ID:            m.OutboxMessageID,
		Type:          m.Type,
		Content:       m.Content,
		OccurredAtUTC: m.OccurredAtUTC.UTC(),
		Error:         m.Error,
		RetryCount:    m.RetryCount,
	}
	if m.ProcessedAtUTC != nil {
		at := m.ProcessedAtUTC.UTC()
		d.ProcessedAtUTC = &at
	}
	return d
}

// ToModelAuditLogEntry converts a domain AuditLogEntry to a model AuditLogEntry
func ToModelAuditLogEntry(d domain.AuditLogEntry) models.AuditLogEntry {
	return models.AuditLogEntry{
		AuditLogEntryID: d.ID,
		UserID:          d.UserID,
		UserName:        d.UserName,
		TenantID:        d.TenantID,
		Action:          d.Action,
		EntityType:      d.EntityType,
		EntityID:        d.EntityID,
		OldValues:       d.OldValues,
		NewValues:       d.NewValues,
		CorrelationID:   d.CorrelationID,
		RequestID:       d.RequestID,
		TimestampUTC:    d.TimestampUTC,
	}
}

// ToDomainAuditLogEntry converts a model AuditLogEntry to a domain AuditLogEntry
func ToDomainAuditLogEntry(m models.AuditLogEntry) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:            m.AuditLogEntryID,
		UserID:        m.UserID,
		UserName:      m.UserName,
		TenantID:      m.TenantID,
		Action:        m.Action,
		EntityType:    m.EntityType,
		EntityID:      m.EntityID,
		OldValues:     m.OldValues,
		NewValues:     m.NewValues,
		CorrelationID: m.CorrelationID,
		RequestID:     m.RequestID,
		TimestampUTC:  m.TimestampUTC.UTC(),
	}
}
