package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/postgres"
	"github.com/orderflow/orderflow/pkg/types/errs"
)

const (
	// Table
	outboxTable = "outbox_events"

	// Columns
	outboxAggregateIDColumn = "aggregate_id"
	outboxEventTypeColumn   = "event_type"
	outboxPayloadColumn     = "payload"
	outboxStatusColumn      = "status"
	outboxCreatedAtColumn   = "created_at"
	outboxResolvedAtColumn  = "resolved_at"
	outboxRetryCountColumn  = "retry_count"
)

type OutboxRepo struct {
	*postgres.Postgres
}

func NewOutboxRepo(pg *postgres.Postgres) *OutboxRepo {
	return &OutboxRepo{pg}
}

// Append records the intent-to-publish on the executor bound to ctx, so
// it commits or rolls back together with the caller's business mutation.
// An existing non-INIT row for (aggregateID, eventType) makes the append
// an idempotent no-op: the step already ran to a recorded outcome, the
// existing row is returned untouched. An existing INIT row does NOT
// no-op: the insert is attempted so the primary key aborts the caller's
// transaction, rolling back a replayed mutation instead of committing it
// twice.
func (r *OutboxRepo) Append(ctx context.Context, aggregateID, eventType string, payload []byte) (*entity.OutboxEvent, error) {
	existing, err := r.Get(ctx, aggregateID, eventType)
	if err != nil && !errors.Is(err, errs.ErrRecordNotFound) {
		return nil, fmt.Errorf("OutboxRepo - Append - r.Get: %w", err)
	}
	if existing != nil && existing.Status != entity.EventInit {
		return existing, nil
	}

	event := entity.NewOutboxEvent(aggregateID, eventType, payload)

	sql, args, err := r.Builder.
		Insert(outboxTable).
		Columns(
			outboxAggregateIDColumn,
			outboxEventTypeColumn,
			outboxPayloadColumn,
			outboxStatusColumn,
			outboxCreatedAtColumn,
			outboxRetryCountColumn,
		).
		Values(
			event.AggregateID,
			event.EventType,
			event.Payload,
			event.Status,
			event.CreatedAt,
			event.RetryCount,
		).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - Append - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - Append - executor.Exec: %w", err)
	}

	return event, nil
}

func (r *OutboxRepo) Get(ctx context.Context, aggregateID, eventType string) (*entity.OutboxEvent, error) {
	sql, args, err := r.Builder.
		Select(
			outboxAggregateIDColumn,
			outboxEventTypeColumn,
			outboxPayloadColumn,
			outboxStatusColumn,
			outboxCreatedAtColumn,
			outboxResolvedAtColumn,
			outboxRetryCountColumn,
		).
		From(outboxTable).
		Where("aggregate_id = ? AND event_type = ?", aggregateID, eventType).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - Get - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var event entity.OutboxEvent
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&event.AggregateID,
		&event.EventType,
		&event.Payload,
		&event.Status,
		&event.CreatedAt,
		&event.ResolvedAt,
		&event.RetryCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("OutboxRepo - Get: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("OutboxRepo - Get - executor.QueryRow: %w", err)
	}

	return &event, nil
}

func (r *OutboxRepo) GetByStatus(ctx context.Context, status entity.EventStatus, limit int) ([]*entity.OutboxEvent, error) {
	sql, args, err := r.Builder.
		Select(
			outboxAggregateIDColumn,
			outboxEventTypeColumn,
			outboxPayloadColumn,
			outboxStatusColumn,
			outboxCreatedAtColumn,
			outboxResolvedAtColumn,
			outboxRetryCountColumn,
		).
		From(outboxTable).
		Where(squirrel.Eq{outboxStatusColumn: status}).
		OrderBy(outboxCreatedAtColumn + " ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetByStatus - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetByStatus - executor.Query: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.OutboxEvent, 0, limit)
	for rows.Next() {
		var event entity.OutboxEvent
		err = rows.Scan(
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&event.Status,
			&event.CreatedAt,
			&event.ResolvedAt,
			&event.RetryCount,
		)
		if err != nil {
			return nil, fmt.Errorf("OutboxRepo - GetByStatus - rows.Scan: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetByStatus - rows.Err: %w", err)
	}

	return events, nil
}

// UpdateStatus enforces the monotonic lifecycle: a SUCCESS row is never
// rewritten, so late retries and replayed compensations land on
// errs.ErrAlreadyResolved instead of regressing the state machine.
func (r *OutboxRepo) UpdateStatus(ctx context.Context, aggregateID, eventType string, status entity.EventStatus) error {
	builder := r.Builder.
		Update(outboxTable).
		Set(outboxStatusColumn, status).
		Where("aggregate_id = ? AND event_type = ?", aggregateID, eventType).
		Where(squirrel.NotEq{outboxStatusColumn: entity.EventSuccess})

	if status == entity.EventSuccess {
		builder = builder.Set(outboxResolvedAtColumn, time.Now())
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - UpdateStatus - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - UpdateStatus - executor.Exec: %w", err)
	}

	// Zero rows is either the monotonic guard (row already SUCCESS) or a
	// row that does not exist; callers need to tell those apart.
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, aggregateID, eventType); err != nil {
			if errors.Is(err, errs.ErrRecordNotFound) {
				return fmt.Errorf("OutboxRepo - UpdateStatus: %w", errs.ErrRecordNotFound)
			}
			return fmt.Errorf("OutboxRepo - UpdateStatus - r.Get: %w", err)
		}

		return fmt.Errorf("OutboxRepo - UpdateStatus: %w", errs.ErrAlreadyResolved)
	}

	return nil
}

func (r *OutboxRepo) IncrementRetryCount(ctx context.Context, aggregateID, eventType string) error {
	sql, args, err := r.Builder.
		Update(outboxTable).
		Set(outboxRetryCountColumn, squirrel.Expr(outboxRetryCountColumn+" + 1")).
		Where("aggregate_id = ? AND event_type = ?", aggregateID, eventType).
		ToSql()
	if err != nil {
		return fmt.Errorf("OutboxRepo - IncrementRetryCount - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OutboxRepo - IncrementRetryCount - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OutboxRepo - IncrementRetryCount: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *OutboxRepo) GetResolvedBefore(ctx context.Context, olderThan time.Time, limit int) ([]*entity.OutboxEvent, error) {
	sql, args, err := r.Builder.
		Select(
			outboxAggregateIDColumn,
			outboxEventTypeColumn,
			outboxPayloadColumn,
			outboxStatusColumn,
			outboxCreatedAtColumn,
			outboxResolvedAtColumn,
			outboxRetryCountColumn,
		).
		From(outboxTable).
		Where(squirrel.Eq{outboxStatusColumn: entity.EventSuccess}).
		Where(squirrel.Lt{outboxResolvedAtColumn: olderThan}).
		OrderBy(outboxResolvedAtColumn + " ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetResolvedBefore - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetResolvedBefore - executor.Query: %w", err)
	}
	defer rows.Close()

	var events []*entity.OutboxEvent
	for rows.Next() {
		var event entity.OutboxEvent
		err = rows.Scan(
			&event.AggregateID,
			&event.EventType,
			&event.Payload,
			&event.Status,
			&event.CreatedAt,
			&event.ResolvedAt,
			&event.RetryCount,
		)
		if err != nil {
			return nil, fmt.Errorf("OutboxRepo - GetResolvedBefore - rows.Scan: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("OutboxRepo - GetResolvedBefore - rows.Err: %w", err)
	}

	return events, nil
}

func (r *OutboxRepo) DeleteResolvedBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	sql, args, err := r.Builder.
		Delete(outboxTable).
		Where(squirrel.Eq{outboxStatusColumn: entity.EventSuccess}).
		Where(squirrel.Lt{outboxResolvedAtColumn: olderThan}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("OutboxRepo - DeleteResolvedBefore - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("OutboxRepo - DeleteResolvedBefore - executor.Exec: %w", err)
	}

	return tag.RowsAffected(), nil
}
