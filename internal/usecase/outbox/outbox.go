package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/internal/repo"
	"github.com/orderflow/orderflow/pkg/logger"
)

// OutboxUseCase is the surface the dispatcher and the recovery poller work
// against; it never opens transactions, outbox status is the concurrency
// gate between those workers.
type OutboxUseCase struct {
	outboxRepo  repo.OutboxRepo
	archiveRepo repo.ArchiveRepo

	logger logger.Interface
}

func New(outboxRepo repo.OutboxRepo, archiveRepo repo.ArchiveRepo, l logger.Interface) *OutboxUseCase {
	return &OutboxUseCase{
		outboxRepo:  outboxRepo,
		archiveRepo: archiveRepo,
		logger:      l,
	}
}

func (uc *OutboxUseCase) GetInitEvents(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	events, err := uc.outboxRepo.GetByStatus(ctx, entity.EventInit, limit)
	if err != nil {
		return nil, fmt.Errorf("OutboxUseCase - GetInitEvents - uc.outboxRepo.GetByStatus: %w", err)
	}

	return events, nil
}

func (uc *OutboxUseCase) GetFailEvents(ctx context.Context, limit int) ([]*entity.OutboxEvent, error) {
	events, err := uc.outboxRepo.GetByStatus(ctx, entity.EventFail, limit)
	if err != nil {
		return nil, fmt.Errorf("OutboxUseCase - GetFailEvents - uc.outboxRepo.GetByStatus: %w", err)
	}

	return events, nil
}

func (uc *OutboxUseCase) MarkSuccess(ctx context.Context, aggregateID, eventType string) error {
	err := uc.outboxRepo.UpdateStatus(ctx, aggregateID, eventType, entity.EventSuccess)
	if err != nil {
		return fmt.Errorf("OutboxUseCase - MarkSuccess - uc.outboxRepo.UpdateStatus: %w", err)
	}

	return nil
}

func (uc *OutboxUseCase) MarkFail(ctx context.Context, aggregateID, eventType string) error {
	err := uc.outboxRepo.UpdateStatus(ctx, aggregateID, eventType, entity.EventFail)
	if err != nil {
		return fmt.Errorf("OutboxUseCase - MarkFail - uc.outboxRepo.UpdateStatus: %w", err)
	}

	return nil
}

func (uc *OutboxUseCase) IncrementRetry(ctx context.Context, aggregateID, eventType string) error {
	err := uc.outboxRepo.IncrementRetryCount(ctx, aggregateID, eventType)
	if err != nil {
		return fmt.Errorf("OutboxUseCase - IncrementRetry - uc.outboxRepo.IncrementRetryCount: %w", err)
	}

	return nil
}

// ArchiveResolved uploads resolved rows older than the retention window to
// object storage, then deletes them. A failed archive aborts the deletion,
// the rows stay until a later run succeeds.
func (uc *OutboxUseCase) ArchiveResolved(ctx context.Context, olderThan time.Time) error {
	const archiveBatchSize = 500

	events, err := uc.outboxRepo.GetResolvedBefore(ctx, olderThan, archiveBatchSize)
	if err != nil {
		return fmt.Errorf("OutboxUseCase - ArchiveResolved - uc.outboxRepo.GetResolvedBefore: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	if err := uc.archiveRepo.StoreBatch(ctx, events); err != nil {
		return fmt.Errorf("OutboxUseCase - ArchiveResolved - uc.archiveRepo.StoreBatch: %w", err)
	}

	// Delete no further than what was actually archived; a full batch means
	// older rows may remain for the next run.
	cutoff := olderThan
	if last := events[len(events)-1]; len(events) == archiveBatchSize && last.ResolvedAt != nil {
		cutoff = last.ResolvedAt.Add(time.Nanosecond)
	}

	count, err := uc.outboxRepo.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("OutboxUseCase - ArchiveResolved - uc.outboxRepo.DeleteResolvedBefore: %w", err)
	}

	uc.logger.Info("archived resolved outbox events, count = %d", count)

	return nil
}
