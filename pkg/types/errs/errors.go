package errs

import "errors"

// Domain error taxonomy. NotFound and the Conflict family surface
// synchronously from the request path; everything raised inside an
// asynchronous saga step is recorded on the outbox row instead of
// propagating to a caller.
var (
	ErrRecordNotFound = errors.New("record not found")

	// Conflict family.
	ErrOutOfStock          = errors.New("out of stock")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrVersionConflict     = errors.New("version conflict")
	ErrPaymentFailed       = errors.New("payment failed")

	// Outbox.
	ErrAlreadyResolved = errors.New("outbox event already resolved")
)

// IsConflict reports whether err belongs to the Conflict family.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrPaymentFailed)
}
