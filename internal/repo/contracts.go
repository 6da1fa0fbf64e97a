package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/entity"
)

type (
	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}

	UserRepo interface {
		Exists(ctx context.Context, id uuid.UUID) (bool, error)
	}

	OrderRepo interface {
		Create(ctx context.Context, order *entity.Order) error
		CreateItems(ctx context.Context, items []entity.OrderItem) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
		GetItems(ctx context.Context, orderID uuid.UUID) ([]entity.OrderItem, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status entity.OrderStatus) error
	}

	// StockRepo mutations run on the executor bound to the caller's
	// context, so Deduct joins the saga step's transaction.
	StockRepo interface {
		GetByProductID(ctx context.Context, productID uuid.UUID) (*entity.ProductStock, error)
		// GetPrices reads current catalog prices; CreateOrder snapshots
		// them into immutable order items.
		GetPrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error)
		Deduct(ctx context.Context, quantities map[uuid.UUID]int64) error
		Add(ctx context.Context, productID uuid.UUID, quantity int64) error
	}

	WalletRepo interface {
		GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error)
		// UpdateWithVersion applies the CAS write `WHERE id=? AND version=?`;
		// zero rows affected surfaces errs.ErrVersionConflict.
		UpdateWithVersion(ctx context.Context, wallet *entity.Wallet, prevVersion int64) error
		CreatePoint(ctx context.Context, point *entity.Point) error
		SumPoints(ctx context.Context, walletID uuid.UUID) (int64, error)
	}

	OutboxRepo interface {
		Append(ctx context.Context, aggregateID, eventType string, payload []byte) (*entity.OutboxEvent, error)
		Get(ctx context.Context, aggregateID, eventType string) (*entity.OutboxEvent, error)
		GetByStatus(ctx context.Context, status entity.EventStatus, limit int) ([]*entity.OutboxEvent, error)
		UpdateStatus(ctx context.Context, aggregateID, eventType string, status entity.EventStatus) error
		IncrementRetryCount(ctx context.Context, aggregateID, eventType string) error
		GetResolvedBefore(ctx context.Context, olderThan time.Time, limit int) ([]*entity.OutboxEvent, error)
		DeleteResolvedBefore(ctx context.Context, olderThan time.Time) (int64, error)
	}

	// ArchiveRepo stores resolved outbox rows outside the database before
	// cleanup deletes them.
	ArchiveRepo interface {
		StoreBatch(ctx context.Context, events []*entity.OutboxEvent) error
	}
)
