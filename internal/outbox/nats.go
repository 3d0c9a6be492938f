package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/nats-io/nats.go"
)

const natsFlushTimeout = 5 * time.Second

// NATSDeliverer publishes each message on <prefix>.<event type> and flushes so a
// successful Deliver means the server received it.
type NATSDeliverer struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewNATSDeliverer(url, subjectPrefix string) (*NATSDeliverer, error) {
	conn, err := nats.Connect(url, nats.Name("procureflow-outbox-relay"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATSDeliverer{conn: conn, subjectPrefix: subjectPrefix}, nil
}

func (d *NATSDeliverer) Subject(eventType string) string {
	if d.subjectPrefix == "" {
		return eventType
	}
	return d.subjectPrefix + "." + eventType
}

func (d *NATSDeliverer) Deliver(ctx context.Context, msg domain.OutboxMessage) error {
	out := nats.NewMsg(d.Subject(msg.Type))
	out.Data = msg.Content
	out.Header.Set(nats.MsgIdHdr, msg.ID)
	if err := d.conn.PublishMsg(out); err != nil {
		return fmt.Errorf("nats publish to %s failed: %w", out.Subject, err)
	}
	flushCtx, cancel := context.WithTimeout(ctx, natsFlushTimeout)
	defer cancel()
	if err := d.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("nats flush after %s failed: %w", out.Subject, err)
	}
	return nil
}

func (d *NATSDeliverer) Close() error {
	return d.conn.Drain()
}
