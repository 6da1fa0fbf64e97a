package saga

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/internal/repo"
	"github.com/orderflow/orderflow/pkg/logger"
	"github.com/orderflow/orderflow/pkg/types/errs"
)

type SagaUseCase struct {
	userRepo   repo.UserRepo
	orderRepo  repo.OrderRepo
	stockRepo  repo.StockRepo
	walletRepo repo.WalletRepo
	outboxRepo repo.OutboxRepo
	transactor repo.Transactor

	logger logger.Interface
}

func New(
	userRepo repo.UserRepo,
	orderRepo repo.OrderRepo,
	stockRepo repo.StockRepo,
	walletRepo repo.WalletRepo,
	outboxRepo repo.OutboxRepo,
	transactor repo.Transactor,
	l logger.Interface,
) *SagaUseCase {
	return &SagaUseCase{
		userRepo:   userRepo,
		orderRepo:  orderRepo,
		stockRepo:  stockRepo,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		transactor: transactor,
		logger:     l,
	}
}

// CreateOrder is the synchronous entry step: it validates the user, inserts
// the order with price-snapshotted items and appends the order.created
// event, all in one transaction. Domain errors surface to the caller.
func (uc *SagaUseCase) CreateOrder(ctx context.Context, userID uuid.UUID, items []entity.OrderItem) (*entity.Order, error) {
	exists, err := uc.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SagaUseCase - CreateOrder - uc.userRepo.Exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("SagaUseCase - CreateOrder - user %s: %w", userID, errs.ErrRecordNotFound)
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}

	prices, err := uc.stockRepo.GetPrices(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("SagaUseCase - CreateOrder - uc.stockRepo.GetPrices: %w", err)
	}

	order := entity.NewOrder(userID)
	for _, item := range items {
		price, ok := prices[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("SagaUseCase - CreateOrder - product %s: %w", item.ProductID, errs.ErrRecordNotFound)
		}

		item.OrderID = order.ID
		item.Price = price
		order.Items = append(order.Items, item)
	}

	payload, err := marshalPayload(entity.OrderCreatedPayload{
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  order.Status,
		Items:   order.Items,
		Total:   order.TotalAmount(),
	})
	if err != nil {
		return nil, fmt.Errorf("SagaUseCase - CreateOrder - marshalPayload: %w", err)
	}

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.orderRepo.Create(ctx, order); err != nil {
			return fmt.Errorf("uc.orderRepo.Create: %w", err)
		}

		if err := uc.orderRepo.CreateItems(ctx, order.Items); err != nil {
			return fmt.Errorf("uc.orderRepo.CreateItems: %w", err)
		}

		if _, err := uc.outboxRepo.Append(ctx, order.AggregateID(), entity.TopicOrderCreated, payload); err != nil {
			return fmt.Errorf("uc.outboxRepo.Append: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("SagaUseCase - CreateOrder - uc.transactor.WithinTransaction: %w", err)
	}

	return order, nil
}

func (uc *SagaUseCase) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := uc.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SagaUseCase - GetOrder - uc.orderRepo.GetByID: %w", err)
	}

	items, err := uc.orderRepo.GetItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SagaUseCase - GetOrder - uc.orderRepo.GetItems: %w", err)
	}
	order.Items = items

	return order, nil
}
