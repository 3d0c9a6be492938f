package models

import "time"

// OutboxMessage is a row of outbox_messages.
type OutboxMessage struct {
	OutboxMessageID string     `db:"outbox_message_id"`
	Type            string     `db:"type"`
	Content         []byte     `db:"content"`
	OccurredAtUTC   time.Time  `db:"occurred_at_utc"`
	ProcessedAtUTC  *time.Time `db:"processed_at_utc"`
	Error           *string    `db:"error"`
	RetryCount      int        `db:"retry_count"`
}

// AuditLogEntry is a row of audit_log_entries.
type AuditLogEntry struct {
	AuditLogEntryID string    `db:"audit_log_entry_id"`
	UserID          string    `db:"user_id"`
	UserName        string    `db:"user_name"`
	TenantID        *string   `db:"tenant_id"`
	Action          string    `db:"action"`
	EntityType      string    `db:"entity_type"`
	EntityID        string    `db:"entity_id"`
	OldValues       []byte    `db:"old_values"`
	NewValues       []byte    `db:"new_values"`
	CorrelationID   string    `db:"correlation_id"`
	RequestID       string    `db:"request_id"`
	TimestampUTC    time.Time `db:"timestamp_utc"`
}
