package entity

// Event types double as broker topics; every message carries
// key = AggregateID for per-order ordering.
const (
	TopicOrderCreated = "order.created"
	TopicDeductStock  = "order.deduct_stock"
	TopicPayment      = "order.payment"
	TopicOrderSuccess = "order.success"
	TopicOrderFailed  = "order.failed"
)
