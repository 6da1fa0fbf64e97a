package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/pkg/types/errs"
)

// Wallet is mutated via compare-and-swap on Version; every successful
// mutation bumps Version by exactly one and appends one Point row.
type Wallet struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	TotalPoint int64     `json:"total_point"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type TransactionType string

const (
	TransactionCharge  TransactionType = "CHARGE"
	TransactionPayment TransactionType = "PAYMENT"
	TransactionRefund  TransactionType = "REFUND"
)

// Point is the append-only ledger entry; sum(Point.Amount) for a wallet
// always equals Wallet.TotalPoint.
type Point struct {
	ID              uuid.UUID       `json:"id"`
	WalletID        uuid.UUID       `json:"wallet_id"`
	Amount          int64           `json:"amount"`
	TransactionType TransactionType `json:"transaction_type"`
	CreatedAt       time.Time       `json:"created_at"`
	ExpiredAt       *time.Time      `json:"expired_at,omitempty"`
}

// Charge increases the balance and returns the ledger entry to persist
// alongside the wallet update.
func (w *Wallet) Charge(amount int64) *Point {
	w.TotalPoint += amount
	w.UpdatedAt = time.Now()

	return &Point{
		ID:              uuid.New(),
		WalletID:        w.ID,
		Amount:          amount,
		TransactionType: TransactionCharge,
		CreatedAt:       w.UpdatedAt,
	}
}

// Debit decreases the balance; the wallet is left untouched when the
// balance is insufficient.
func (w *Wallet) Debit(amount int64) (*Point, error) {
	if w.TotalPoint < amount {
		return nil, errs.ErrInsufficientBalance
	}

	w.TotalPoint -= amount
	w.UpdatedAt = time.Now()

	return &Point{
		ID:              uuid.New(),
		WalletID:        w.ID,
		Amount:          -amount,
		TransactionType: TransactionPayment,
		CreatedAt:       w.UpdatedAt,
	}, nil
}
