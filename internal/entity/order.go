package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Order struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	Status    OrderStatus `json:"status"`
	Items     []OrderItem `json:"items,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItem price is snapshotted at order-creation time and never
// rewritten afterwards.
type OrderItem struct {
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	Price     int64     `json:"price"`
}

func NewOrder(userID uuid.UUID) *Order {
	now := time.Now()

	return &Order{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    OrderPendingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TotalAmount is the sum debited from the wallet at payment time.
func (o *Order) TotalAmount() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Price * item.Quantity
	}

	return total
}

// AggregateID keys every outbox event of one saga instance, so the broker
// keeps per-order ordering.
func (o *Order) AggregateID() string {
	return fmt.Sprintf("order-%s", o.ID)
}