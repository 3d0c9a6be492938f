package domain

import (
	"encoding/json"
	"time"
)

// OutboxMessage is a serialized event waiting for (or done with) delivery. Rows are never
// deleted; ProcessedAtUTC is set exactly once.
type OutboxMessage struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Content        []byte     `json:"content"`
	OccurredAtUTC  time.Time  `json:"occurredAtUtc"`
	ProcessedAtUTC *time.Time `json:"processedAtUtc,omitempty"`
	Error          *string    `json:"error,omitempty"`
	RetryCount     int        `json:"retryCount"`
}

// NewOutboxMessage serializes e into a pending outbox row.
func NewOutboxMessage(id string, e Event) (OutboxMessage, error) {
	content, err := EncodeEvent(e)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		ID:            id,
		Type:          e.EventType(),
		Content:       content,
		OccurredAtUTC: e.OccurredAt().UTC(),
	}, nil
}

// IsProcessed reports whether the row was delivered.
func (m OutboxMessage) IsProcessed() bool {
	return m.ProcessedAtUTC != nil
}

// Event decodes the stored content through the event type table.
func (m OutboxMessage) Event() (Event, error) {
	return DecodeEvent(m.Type, m.Content)
}

// IdempotencyRecord stores the serialized successful result of a command, unique per
// (CommandType, Key).
type IdempotencyRecord struct {
	Key              string          `json:"key"`
	CommandType      string          `json:"commandType"`
	SerializedResult json.RawMessage `json:"serializedResult"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// AuditLogEntry records one mutation of one aggregate.
type AuditLogEntry struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	UserName      string          `json:"userName"`
	TenantID      *string         `json:"tenantId,omitempty"`
	Action        string          `json:"action"`
	EntityType    string          `json:"entityType"`
	EntityID      string          `json:"entityId"`
	OldValues     json.RawMessage `json:"oldValues,omitempty"`
	NewValues     json.RawMessage `json:"newValues,omitempty"`
	CorrelationID string          `json:"correlationId"`
	RequestID     string          `json:"requestId"`
	TimestampUTC  time.Time       `json:"timestampUtc"`
}
