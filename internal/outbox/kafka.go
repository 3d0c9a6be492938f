package outbox

import (
	"context"
	"fmt"

	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/segmentio/kafka-go"
)

// KafkaDeliverer writes each message to the topic <prefix><event type>, keyed by the
// message id.
type KafkaDeliverer struct {
	writer      *kafka.Writer
	topicPrefix string
}

func NewKafkaDeliverer(brokers []string, topicPrefix string) *KafkaDeliverer {
	return &KafkaDeliverer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topicPrefix: topicPrefix,
	}
}

func (d *KafkaDeliverer) Topic(eventType string) string {
	return d.topicPrefix + eventType
}

func (d *KafkaDeliverer) Deliver(ctx context.Context, msg domain.OutboxMessage) error {
	err := d.writer.WriteMessages(ctx, kafka.Message{
		Topic: d.Topic(msg.Type),
		Key:   []byte(msg.ID),
		Value: msg.Content,
		Time:  msg.OccurredAtUTC,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(msg.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write to %s failed: %w", d.Topic(msg.Type), err)
	}
	return nil
}

func (d *KafkaDeliverer) Close() error { return d.writer.Close() }
