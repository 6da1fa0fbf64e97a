package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/kafka/producer"
)

type EventProducer struct {
	*producer.Producer
}

func NewEventProducer(producer *producer.Producer) *EventProducer {
	return &EventProducer{producer}
}

// SendEvent publishes one outbox row. Topic = event type, key =
// aggregate id, so the broker keeps per-order ordering.
func (ep *EventProducer) SendEvent(ctx context.Context, event *entity.OutboxEvent) error {
	msg := kafka.Message{
		Topic: event.EventType,
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	err := ep.Writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("EventProducer - SendEvent - ep.Writer.WriteMessages: %w", err)
	}

	return nil
}

func (ep *EventProducer) Close() error {
	err := ep.Producer.Close()
	if err != nil {
		return fmt.Errorf("EventProducer - Close: %w", err)
	}

	return nil
}
