package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/entity"
)

type (
	// SagaUseCase owns the fixed order -> stock -> payment topology. Each
	// step is one resource mutation plus one outbox append in a single
	// transaction. CreateOrder errors surface to the caller; DeductStock
	// and CompletePayment run on the consumer side, their failures are
	// recorded as FAIL outbox rows instead of propagating.
	SagaUseCase interface {
		CreateOrder(ctx context.Context, userID uuid.UUID, items []entity.OrderItem) (*entity.Order, error)
		DeductStock(ctx context.Context, payload entity.OrderCreatedPayload) error
		CompletePayment(ctx context.Context, payload entity.DeductStockPayload) error
		Compensate(ctx context.Context, event *entity.OutboxEvent) error
		GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	}

	WalletUseCase interface {
		Charge(ctx context.Context, userID uuid.UUID, amount int64) (*entity.Wallet, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error)
		Reconcile(ctx context.Context, userID uuid.UUID) (bool, error)
	}

	// OutboxUseCase is the dispatcher/poller-facing surface of the outbox
	// store.
	OutboxUseCase interface {
		GetInitEvents(ctx context.Context, limit int) ([]*entity.OutboxEvent, error)
		GetFailEvents(ctx context.Context, limit int) ([]*entity.OutboxEvent, error)
		MarkSuccess(ctx context.Context, aggregateID, eventType string) error
		MarkFail(ctx context.Context, aggregateID, eventType string) error
		IncrementRetry(ctx context.Context, aggregateID, eventType string) error
		ArchiveResolved(ctx context.Context, olderThan time.Time) error
	}
)
