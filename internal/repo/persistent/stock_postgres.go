package persistent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/postgres"
	"github.com/orderflow/orderflow/pkg/types/errs"
)

const (
	// Tables
	stockTable    = "product_stocks"
	productsTable = "products"

	// Columns
	stockProductIDColumn = "product_id"
	stockColumn          = "stock"
	stockUpdatedAtColumn = "updated_at"

	productIDColumn    = "id"
	productPriceColumn = "price"
)

// StockRepo is the pessimistic ledger: rows are read FOR UPDATE and the
// whole batch is validated before any deduction is applied.
type StockRepo struct {
	*postgres.Postgres
}

func NewStockRepo(pg *postgres.Postgres) *StockRepo {
	return &StockRepo{pg}
}

func (r *StockRepo) GetByProductID(ctx context.Context, productID uuid.UUID) (*entity.ProductStock, error) {
	sql, args, err := r.Builder.
		Select(stockProductIDColumn, stockColumn, stockUpdatedAtColumn).
		From(stockTable).
		Where("product_id = ?", productID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("StockRepo - GetByProductID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var stock entity.ProductStock
	err = executor.QueryRow(ctx, sql, args...).Scan(&stock.ProductID, &stock.Stock, &stock.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("StockRepo - GetByProductID: %w", errs.ErrRecordNotFound)
	}

	return &stock, nil
}

func (r *StockRepo) GetPrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	sql, args, err := r.Builder.
		Select(productIDColumn, productPriceColumn).
		From(productsTable).
		Where(squirrel.Eq{productIDColumn: productIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("StockRepo - GetPrices - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("StockRepo - GetPrices - executor.Query: %w", err)
	}
	defer rows.Close()

	prices := make(map[uuid.UUID]int64, len(productIDs))
	for rows.Next() {
		var (
			id    uuid.UUID
			price int64
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("StockRepo - GetPrices - rows.Scan: %w", err)
		}
		prices[id] = price
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("StockRepo - GetPrices - rows.Err: %w", err)
	}

	return prices, nil
}

// Deduct locks every requested row in one query, sorted by product id to
// avoid deadlock between concurrent batches, validates all of them and
// only then applies the deductions. Any shortfall fails the whole batch.
func (r *StockRepo) Deduct(ctx context.Context, quantities map[uuid.UUID]int64) error {
	if len(quantities) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	sql, args, err := r.Builder.
		Select(stockProductIDColumn, stockColumn).
		From(stockTable).
		Where(squirrel.Eq{stockProductIDColumn: ids}).
		OrderBy(stockProductIDColumn).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return fmt.Errorf("StockRepo - Deduct - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("StockRepo - Deduct - executor.Query: %w", err)
	}

	locked := make(map[uuid.UUID]int64, len(ids))
	for rows.Next() {
		var (
			productID uuid.UUID
			stock     int64
		)
		if err := rows.Scan(&productID, &stock); err != nil {
			rows.Close()
			return fmt.Errorf("StockRepo - Deduct - rows.Scan: %w", err)
		}
		locked[productID] = stock
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("StockRepo - Deduct - rows.Err: %w", err)
	}

	// Validate the whole batch before touching anything.
	for _, id := range ids {
		stock, ok := locked[id]
		if !ok {
			return fmt.Errorf("StockRepo - Deduct - product %s: %w", id, errs.ErrRecordNotFound)
		}
		if stock < quantities[id] {
			return fmt.Errorf("StockRepo - Deduct - product %s: %w", id, errs.ErrOutOfStock)
		}
	}

	now := time.Now()
	for _, id := range ids {
		sql, args, err := r.Builder.
			Update(stockTable).
			Set(stockColumn, squirrel.Expr(stockColumn+" - ?", quantities[id])).
			Set(stockUpdatedAtColumn, now).
			Where("product_id = ?", id).
			ToSql()
		if err != nil {
			return fmt.Errorf("StockRepo - Deduct - r.Builder.ToSql: %w", err)
		}

		if _, err := executor.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("StockRepo - Deduct - executor.Exec: %w", err)
		}
	}

	return nil
}

// Add is the compensation inverse of Deduct.
func (r *StockRepo) Add(ctx context.Context, productID uuid.UUID, quantity int64) error {
	sql, args, err := r.Builder.
		Update(stockTable).
		Set(stockColumn, squirrel.Expr(stockColumn+" + ?", quantity)).
		Set(stockUpdatedAtColumn, time.Now()).
		Where("product_id = ?", productID).
		ToSql()
	if err != nil {
		return fmt.Errorf("StockRepo - Add - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("StockRepo - Add - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("StockRepo - Add: %w", errs.ErrRecordNotFound)
	}

	return nil
}
