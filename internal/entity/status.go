package entity

type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderPaid           OrderStatus = "PAID"
	OrderFailed         OrderStatus = "FAILED"
)

// EventStatus transitions are monotonic: INIT->SUCCESS, INIT->FAIL,
// FAIL->SUCCESS (after compensation). SUCCESS is terminal.
type EventStatus string

const (
	EventInit    EventStatus = "INIT"
	EventSuccess EventStatus = "SUCCESS"
	EventFail    EventStatus = "FAIL"
)
