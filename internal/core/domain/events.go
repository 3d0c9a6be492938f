package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
)

// Event is a fact raised by an aggregate and recorded in the outbox.
type Event interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventMeta is embedded by every event.
type EventMeta struct {
	EntityID string    `json:"aggregateId"`
	At       time.Time `json:"occurredAt"`
}

func newEventMeta(aggregateID string, at time.Time) EventMeta {
	return EventMeta{EntityID: aggregateID, At: at.UTC()}
}

func (m EventMeta) AggregateID() string   { return m.EntityID }
func (m EventMeta) OccurredAt() time.Time { return m.At }

// Event type names as stored in outbox_messages.type.
const (
	EventPurchaseRequestCreated      = "PurchaseRequestCreated"
	EventPurchaseRequestEdited       = "PurchaseRequestEdited"
	EventPurchaseRequestSubmitted    = "PurchaseRequestSubmitted"
	EventPurchaseRequestStepApproved = "PurchaseRequestStepApproved"
	EventPurchaseRequestApproved     = "PurchaseRequestApprovedEvent"
	EventPurchaseRequestRejected     = "PurchaseRequestRejected"
	EventPurchaseRequestReturned     = "PurchaseRequestReturned"
	EventPurchaseRequestResubmitted  = "PurchaseRequestResubmitted"
	EventPurchaseRequestCancelled    = "PurchaseRequestCancelled"

	EventApplicationCreated      = "ApplicationCreated"
	EventApplicationEdited       = "ApplicationEdited"
	EventApplicationSubmitted    = "ApplicationSubmitted"
	EventApplicationStepApproved = "ApplicationStepApproved"
	EventApplicationApproved     = "ApplicationApproved"
	EventApplicationRejected     = "ApplicationRejected"
	EventApplicationReturned     = "ApplicationReturned"
	EventApplicationResubmitted  = "ApplicationResubmitted"
	EventApplicationCancelled    = "ApplicationCancelled"

	EventWorkflowDefinitionActivated   = "WorkflowDefinitionActivated"
	EventWorkflowDefinitionDeactivated = "WorkflowDefinitionDeactivated"
)

// eventFactories maps every known event type name to a constructor of its zero value.
// New event types must be added here to be decodable by the relay.
var eventFactories = map[string]func() Event{
	EventPurchaseRequestCreated:      func() Event { return &PurchaseRequestCreated{} },
	EventPurchaseRequestEdited:       func() Event { return &PurchaseRequestEdited{} },
	EventPurchaseRequestSubmitted:    func() Event { return &PurchaseRequestSubmitted{} },
	EventPurchaseRequestStepApproved: func() Event { return &PurchaseRequestStepApproved{} },
	EventPurchaseRequestApproved:     func() Event { return &PurchaseRequestApproved{} },
	EventPurchaseRequestRejected:     func() Event { return &PurchaseRequestRejected{} },
	EventPurchaseRequestReturned:     func() Event { return &PurchaseRequestReturned{} },
	EventPurchaseRequestResubmitted:  func() Event { return &PurchaseRequestResubmitted{} },
	EventPurchaseRequestCancelled:    func() Event { return &PurchaseRequestCancelled{} },

	EventApplicationCreated:      func() Event { return &ApplicationCreated{} },
	EventApplicationEdited:       func() Event { return &ApplicationEdited{} },
	EventApplicationSubmitted:    func() Event { return &ApplicationSubmitted{} },
	EventApplicationStepApproved: func() Event { return &ApplicationStepApproved{} },
	EventApplicationApproved:     func() Event { return &ApplicationApproved{} },
	EventApplicationRejected:     func() Event { return &ApplicationRejected{} },
	EventApplicationReturned:     func() Event { return &ApplicationReturned{} },
	EventApplicationResubmitted:  func() Event { return &ApplicationResubmitted{} },
	EventApplicationCancelled:    func() Event { return &ApplicationCancelled{} },

	EventWorkflowDefinitionActivated:   func() Event { return &WorkflowDefinitionActivated{} },
	EventWorkflowDefinitionDeactivated: func() Event { return &WorkflowDefinitionDeactivated{} },
}

// EncodeEvent serializes an event for storage.
func EncodeEvent(e Event) ([]byte, error) {
	if _, ok := eventFactories[e.EventType()]; !ok {
		return nil, fmt.Errorf("%w: unregistered event type %q", apperrors.ErrValidation, e.EventType())
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.EventType(), err)
	}
	return data, nil
}

// DecodeEvent rebuilds an event from its type name and serialized content.
func DecodeEvent(eventType string, content []byte) (Event, error) {
	factory, ok := eventFactories[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event type %q", apperrors.ErrValidation, eventType)
	}
	e := factory()
	if err := json.Unmarshal(content, e); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", eventType, err)
	}
	return e, nil
}

// RegisteredEventTypes returns the known event type names in lexical order.
func RegisteredEventTypes() []string {
	names := make([]string, 0, len(eventFactories))
	for name := range eventFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
