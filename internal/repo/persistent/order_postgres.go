package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/postgres"
	"github.com/orderflow/orderflow/pkg/types/errs"
)

const (
	// Tables
	ordersTable     = "orders"
	orderItemsTable = "order_items"

	// Columns
	orderIDColumn        = "id"
	orderUserIDColumn    = "user_id"
	orderStatusColumn    = "status"
	orderCreatedAtColumn = "created_at"
	orderUpdatedAtColumn = "updated_at"

	itemOrderIDColumn   = "order_id"
	itemProductIDColumn = "product_id"
	itemQuantityColumn  = "quantity"
	itemPriceColumn     = "price"
)

type OrderRepo struct {
	*postgres.Postgres
}

func NewOrderRepo(pg *postgres.Postgres) *OrderRepo {
	return &OrderRepo{pg}
}

func (r *OrderRepo) Create(ctx context.Context, order *entity.Order) error {
	sql, args, err := r.Builder.
		Insert(ordersTable).
		Columns(
			orderIDColumn,
			orderUserIDColumn,
			orderStatusColumn,
			orderCreatedAtColumn,
			orderUpdatedAtColumn,
		).
		Values(
			order.ID,
			order.UserID,
			order.Status,
			order.CreatedAt,
			order.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("OrderRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OrderRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *OrderRepo) CreateItems(ctx context.Context, items []entity.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	builder := r.Builder.
		Insert(orderItemsTable).
		Columns(
			itemOrderIDColumn,
			itemProductIDColumn,
			itemQuantityColumn,
			itemPriceColumn,
		)

	for _, item := range items {
		builder = builder.Values(item.OrderID, item.ProductID, item.Quantity, item.Price)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("OrderRepo - CreateItems - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OrderRepo - CreateItems - executor.Exec: %w", err)
	}

	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	sql, args, err := r.Builder.
		Select(
			orderIDColumn,
			orderUserIDColumn,
			orderStatusColumn,
			orderCreatedAtColumn,
			orderUpdatedAtColumn,
		).
		From(ordersTable).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OrderRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var order entity.Order
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("OrderRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("OrderRepo - GetByID - executor.QueryRow: %w", err)
	}

	return &order, nil
}

func (r *OrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]entity.OrderItem, error) {
	sql, args, err := r.Builder.
		Select(
			itemOrderIDColumn,
			itemProductIDColumn,
			itemQuantityColumn,
			itemPriceColumn,
		).
		From(orderItemsTable).
		Where("order_id = ?", orderID).
		OrderBy(itemProductIDColumn).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OrderRepo - GetItems - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OrderRepo - GetItems - executor.Query: %w", err)
	}
	defer rows.Close()

	var items []entity.OrderItem
	for rows.Next() {
		var item entity.OrderItem
		err = rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.Price)
		if err != nil {
			return nil, fmt.Errorf("OrderRepo - GetItems - rows.Scan: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("OrderRepo - GetItems - rows.Err: %w", err)
	}

	return items, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.OrderStatus) error {
	sql, args, err := r.Builder.
		Update(ordersTable).
		Set(orderStatusColumn, status).
		Set(orderUpdatedAtColumn, time.Now()).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("OrderRepo - UpdateStatus - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OrderRepo - UpdateStatus - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OrderRepo - UpdateStatus: %w", errs.ErrRecordNotFound)
	}

	return nil
}
