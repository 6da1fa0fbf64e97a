package entity

import (
	"github.com/google/uuid"
)

// Event payloads are JSON-encoded exactly once; the dispatcher and the
// consumers share these shapes.

type OrderCreatedPayload struct {
	OrderID uuid.UUID   `json:"order_id"`
	UserID  uuid.UUID   `json:"user_id"`
	Status  OrderStatus `json:"status"`
	Items   []OrderItem `json:"items"`
	Total   int64       `json:"total"`
}

type DeductStockPayload struct {
	OrderID uuid.UUID   `json:"order_id"`
	UserID  uuid.UUID   `json:"user_id"`
	Items   []OrderItem `json:"items"`
	Total   int64       `json:"total"`
}

type PaymentPayload struct {
	OrderID    uuid.UUID `json:"order_id"`
	WalletID   uuid.UUID `json:"wallet_id"`
	UserID     uuid.UUID `json:"user_id"`
	Amount     int64     `json:"amount"`
	TotalPoint int64     `json:"total_point"`
	Version    int64     `json:"version"`
}

type OrderSummaryPayload struct {
	OrderID uuid.UUID   `json:"order_id"`
	UserID  uuid.UUID   `json:"user_id"`
	Status  OrderStatus `json:"status"`
	Total   int64       `json:"total"`
}

type OrderFailedPayload struct {
	AggregateID string `json:"aggregate_id"`
	Reason      string `json:"reason,omitempty"`
}
