package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/types/errs"
)

// DeductStock is driven by a consumed order.created event. An existing
// order.deduct_stock row means a replay of an already-handled delivery,
// so the step short-circuits. The batch deduction and the outbox append
// commit atomically; failure is recorded as a FAIL row for the poller.
func (uc *SagaUseCase) DeductStock(ctx context.Context, payload entity.OrderCreatedPayload) error {
	aggregateID := aggregateIDFor(payload.OrderID)

	done, err := uc.stepAlreadyRecorded(ctx, aggregateID, entity.TopicDeductStock)
	if err != nil {
		return fmt.Errorf("SagaUseCase - DeductStock - uc.stepAlreadyRecorded: %w", err)
	}
	if done {
		return nil
	}

	stepPayload, err := marshalPayload(entity.DeductStockPayload{
		OrderID: payload.OrderID,
		UserID:  payload.UserID,
		Items:   payload.Items,
		Total:   payload.Total,
	})
	if err != nil {
		return fmt.Errorf("SagaUseCase - DeductStock - marshalPayload: %w", err)
	}

	quantities := quantitiesOf(payload.Items)

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.stockRepo.Deduct(ctx, quantities); err != nil {
			return fmt.Errorf("uc.stockRepo.Deduct: %w", err)
		}

		if _, err := uc.outboxRepo.Append(ctx, aggregateID, entity.TopicDeductStock, stepPayload); err != nil {
			return fmt.Errorf("uc.outboxRepo.Append: %w", err)
		}

		return nil
	})
	if err != nil {
		uc.recordStepFailure(ctx, aggregateID, entity.TopicDeductStock, stepPayload, err)

		return fmt.Errorf("SagaUseCase - DeductStock - uc.transactor.WithinTransaction: %w", err)
	}

	return nil
}

// CompletePayment is driven by a consumed order.deduct_stock event. The
// wallet debit (optimistic CAS plus one Point ledger row), the PAID status
// and the order.payment/order.success events commit in one transaction.
func (uc *SagaUseCase) CompletePayment(ctx context.Context, payload entity.DeductStockPayload) error {
	aggregateID := aggregateIDFor(payload.OrderID)

	done, err := uc.stepAlreadyRecorded(ctx, aggregateID, entity.TopicPayment)
	if err != nil {
		return fmt.Errorf("SagaUseCase - CompletePayment - uc.stepAlreadyRecorded: %w", err)
	}
	if done {
		return nil
	}

	err = uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := uc.walletRepo.GetByUserID(ctx, payload.UserID)
		if err != nil {
			return fmt.Errorf("uc.walletRepo.GetByUserID: %w", err)
		}

		prevVersion := wallet.Version

		point, err := wallet.Debit(payload.Total)
		if err != nil {
			return fmt.Errorf("wallet.Debit: %w", err)
		}

		if err := uc.walletRepo.UpdateWithVersion(ctx, wallet, prevVersion); err != nil {
			return fmt.Errorf("uc.walletRepo.UpdateWithVersion: %w", err)
		}

		if err := uc.walletRepo.CreatePoint(ctx, point); err != nil {
			return fmt.Errorf("uc.walletRepo.CreatePoint: %w", err)
		}

		paymentPayload, err := marshalPayload(entity.PaymentPayload{
			OrderID:    payload.OrderID,
			WalletID:   wallet.ID,
			UserID:     wallet.UserID,
			Amount:     payload.Total,
			TotalPoint: wallet.TotalPoint,
			Version:    wallet.Version,
		})
		if err != nil {
			return fmt.Errorf("marshalPayload: %w", err)
		}

		if _, err := uc.outboxRepo.Append(ctx, aggregateID, entity.TopicPayment, paymentPayload); err != nil {
			return fmt.Errorf("uc.outboxRepo.Append: %w", err)
		}

		if err := uc.orderRepo.UpdateStatus(ctx, payload.OrderID, entity.OrderPaid); err != nil {
			return fmt.Errorf("uc.orderRepo.UpdateStatus: %w", err)
		}

		summaryPayload, err := marshalPayload(entity.OrderSummaryPayload{
			OrderID: payload.OrderID,
			UserID:  payload.UserID,
			Status:  entity.OrderPaid,
			Total:   payload.Total,
		})
		if err != nil {
			return fmt.Errorf("marshalPayload: %w", err)
		}

		if _, err := uc.outboxRepo.Append(ctx, aggregateID, entity.TopicOrderSuccess, summaryPayload); err != nil {
			return fmt.Errorf("uc.outboxRepo.Append: %w", err)
		}

		return nil
	})
	if err != nil {
		stepPayload, merr := marshalPayload(entity.PaymentPayload{
			OrderID: payload.OrderID,
			UserID:  payload.UserID,
			Amount:  payload.Total,
		})
		if merr != nil {
			stepPayload = nil
		}

		uc.recordStepFailure(ctx, aggregateID, entity.TopicPayment, stepPayload, err)

		// Announce the failure right away instead of waiting a poll
		// interval; compensation still owns restock and the order status.
		if aerr := uc.appendOrderFailed(ctx, aggregateID, entity.TopicPayment); aerr != nil {
			uc.logger.Error(aerr, "SagaUseCase - CompletePayment - uc.appendOrderFailed")
		}

		return fmt.Errorf("SagaUseCase - CompletePayment - uc.transactor.WithinTransaction: %w", err)
	}

	return nil
}

// stepAlreadyRecorded reports whether the step's outbox row exists at all.
// The row commits atomically with the step's mutation, so its existence
// alone proves the step ran; an INIT row just means the dispatcher has not
// published it yet, re-running the mutation for it would apply it twice.
func (uc *SagaUseCase) stepAlreadyRecorded(ctx context.Context, aggregateID, eventType string) (bool, error) {
	_, err := uc.outboxRepo.Get(ctx, aggregateID, eventType)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// recordStepFailure runs outside the rolled-back step transaction: it
// appends the step's row (if missing) and marks it FAIL so the recovery
// poller owns resolution. Errors here are logged, never propagated.
func (uc *SagaUseCase) recordStepFailure(ctx context.Context, aggregateID, eventType string, payload []byte, cause error) {
	uc.logger.Warn("saga step failed, recording for recovery: aggregate=%s type=%s cause=%v", aggregateID, eventType, cause)

	if _, err := uc.outboxRepo.Append(ctx, aggregateID, eventType, payload); err != nil {
		uc.logger.Error(err, "SagaUseCase - recordStepFailure - uc.outboxRepo.Append")

		return
	}

	if err := uc.outboxRepo.UpdateStatus(ctx, aggregateID, eventType, entity.EventFail); err != nil {
		uc.logger.Error(err, "SagaUseCase - recordStepFailure - uc.outboxRepo.UpdateStatus")
	}
}
