package entity

import (
	"time"
)

// OutboxEvent is written in the same transaction as the mutation it
// describes. (AggregateID, EventType) is the idempotency key: one logical
// event per saga step per aggregate.
type OutboxEvent struct {
	AggregateID string      `json:"aggregate_id"`
	EventType   string      `json:"event_type"`
	Payload     []byte      `json:"payload"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
	RetryCount  int         `json:"retry_count"`
}

func NewOutboxEvent(aggregateID, eventType string, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		Status:      EventInit,
		CreatedAt:   time.Now(),
	}
}

// Resolved means the row will never be dispatched again: either published
// (SUCCESS from INIT) or compensated (SUCCESS from FAIL).
func (e *OutboxEvent) Resolved() bool {
	return e.Status == EventSuccess
}
