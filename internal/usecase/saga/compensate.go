package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/types/errs"
)

// Compensate resolves a FAIL outbox row. A failed payment re-adds the
// deducted stock when the deduction in fact happened; every other failure
// just marks the order FAILED. The row goes to SUCCESS afterwards, which
// makes compensation terminal. An order that is already FAILED means a
// previous compensation run got through: the handler is a safe no-op then,
// no double restock.
func (uc *SagaUseCase) Compensate(ctx context.Context, event *entity.OutboxEvent) error {
	orderID, err := orderIDFrom(event.AggregateID)
	if err != nil {
		return fmt.Errorf("SagaUseCase - Compensate - orderIDFrom: %w", err)
	}

	order, err := uc.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("SagaUseCase - Compensate - uc.orderRepo.GetByID: %w", err)
	}

	if order.Status == entity.OrderFailed {
		return uc.resolveCompensated(ctx, event)
	}

	if event.EventType == entity.TopicPayment {
		if err := uc.restockIfDeducted(ctx, event.AggregateID, orderID); err != nil {
			return fmt.Errorf("SagaUseCase - Compensate - uc.restockIfDeducted: %w", err)
		}
	} else {
		if err := uc.orderRepo.UpdateStatus(ctx, orderID, entity.OrderFailed); err != nil {
			return fmt.Errorf("SagaUseCase - Compensate - uc.orderRepo.UpdateStatus: %w", err)
		}
	}

	if err := uc.appendOrderFailed(ctx, event.AggregateID, event.EventType); err != nil {
		return fmt.Errorf("SagaUseCase - Compensate - uc.appendOrderFailed: %w", err)
	}

	return uc.resolveCompensated(ctx, event)
}

// appendOrderFailed writes the order.failed notification row once per
// aggregate: an existing row, whatever its status, means the failure was
// already announced (possibly by the failing step itself) and is skipped.
func (uc *SagaUseCase) appendOrderFailed(ctx context.Context, aggregateID, reason string) error {
	_, err := uc.outboxRepo.Get(ctx, aggregateID, entity.TopicOrderFailed)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrRecordNotFound) {
		return fmt.Errorf("uc.outboxRepo.Get: %w", err)
	}

	failedPayload, err := marshalPayload(entity.OrderFailedPayload{
		AggregateID: aggregateID,
		Reason:      reason,
	})
	if err != nil {
		return fmt.Errorf("marshalPayload: %w", err)
	}

	if _, err := uc.outboxRepo.Append(ctx, aggregateID, entity.TopicOrderFailed, failedPayload); err != nil {
		return fmt.Errorf("uc.outboxRepo.Append: %w", err)
	}

	return nil
}

// restockIfDeducted reverses the stock deduction and fails the order in
// one transaction, but only when a non-INIT order.deduct_stock row proves
// the deduction committed.
func (uc *SagaUseCase) restockIfDeducted(ctx context.Context, aggregateID string, orderID uuid.UUID) error {
	deductEvent, err := uc.outboxRepo.Get(ctx, aggregateID, entity.TopicDeductStock)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return uc.orderRepo.UpdateStatus(ctx, orderID, entity.OrderFailed)
		}
		return fmt.Errorf("uc.outboxRepo.Get: %w", err)
	}

	if deductEvent.Status == entity.EventInit {
		return uc.orderRepo.UpdateStatus(ctx, orderID, entity.OrderFailed)
	}

	var deductPayload entity.DeductStockPayload
	if err := unmarshalPayload(deductEvent.Payload, &deductPayload); err != nil {
		return fmt.Errorf("unmarshalPayload: %w", err)
	}

	return uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		for productID, quantity := range quantitiesOf(deductPayload.Items) {
			if err := uc.stockRepo.Add(ctx, productID, quantity); err != nil {
				return fmt.Errorf("uc.stockRepo.Add: %w", err)
			}
		}

		if err := uc.orderRepo.UpdateStatus(ctx, orderID, entity.OrderFailed); err != nil {
			return fmt.Errorf("uc.orderRepo.UpdateStatus: %w", err)
		}

		return nil
	})
}

func (uc *SagaUseCase) resolveCompensated(ctx context.Context, event *entity.OutboxEvent) error {
	err := uc.outboxRepo.UpdateStatus(ctx, event.AggregateID, event.EventType, entity.EventSuccess)
	if err != nil && !errors.Is(err, errs.ErrAlreadyResolved) {
		return fmt.Errorf("SagaUseCase - resolveCompensated - uc.outboxRepo.UpdateStatus: %w", err)
	}

	return nil
}
