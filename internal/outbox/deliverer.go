// Package outbox relays committed outbox rows to a message transport.
package outbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/procureflow/internal/core/domain"
)

// Deliverer hands one outbox message to a transport. A nil error means the transport
// accepted it.
type Deliverer interface {
	Deliver(ctx context.Context, msg domain.OutboxMessage) error
	Close() error
}

// LogDeliverer decodes each message through the event type table and logs it. It is the
// in-process notifier used when no broker is configured.
type LogDeliverer struct {
	logger *slog.Logger
}

func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(ctx context.Context, msg domain.OutboxMessage) error {
	event, err := msg.Event()
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", msg.Type, err)
	}
	d.logger.InfoContext(ctx, "Event published",
		slog.String("outbox_message_id", msg.ID),
		slog.String("event_type", event.EventType()),
		slog.String("aggregate_id", event.AggregateID()),
		slog.Time("occurred_at", event.OccurredAt()))
	return nil
}

func (d *LogDeliverer) Close() error { return nil }
