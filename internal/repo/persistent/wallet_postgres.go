package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/postgres"
	"github.com/orderflow/orderflow/pkg/types/errs"
)

const (
	// Tables
	walletsTable = "wallets"
	pointsTable  = "points"

	// Columns
	walletIDColumn         = "id"
	walletUserIDColumn     = "user_id"
	walletTotalPointColumn = "total_point"
	walletVersionColumn    = "version"
	walletUpdatedAtColumn  = "updated_at"

	pointIDColumn        = "id"
	pointWalletIDColumn  = "wallet_id"
	pointAmountColumn    = "amount"
	pointTypeColumn      = "transaction_type"
	pointCreatedAtColumn = "created_at"
	pointExpiredAtColumn = "expired_at"
)

// WalletRepo is the optimistic ledger: writers never block each other,
// a lost race surfaces as errs.ErrVersionConflict.
type WalletRepo struct {
	*postgres.Postgres
}

func NewWalletRepo(pg *postgres.Postgres) *WalletRepo {
	return &WalletRepo{pg}
}

func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error) {
	sql, args, err := r.Builder.
		Select(
			walletIDColumn,
			walletUserIDColumn,
			walletTotalPointColumn,
			walletVersionColumn,
			walletUpdatedAtColumn,
		).
		From(walletsTable).
		Where("user_id = ?", userID).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("WalletRepo - GetByUserID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var wallet entity.Wallet
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.TotalPoint,
		&wallet.Version,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("WalletRepo - GetByUserID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("WalletRepo - GetByUserID - executor.QueryRow: %w", err)
	}

	return &wallet, nil
}

// UpdateWithVersion is the compare-and-swap write. The version the caller
// read guards the update; zero rows affected means the caller lost a race.
func (r *WalletRepo) UpdateWithVersion(ctx context.Context, wallet *entity.Wallet, prevVersion int64) error {
	sql, args, err := r.Builder.
		Update(walletsTable).
		Set(walletTotalPointColumn, wallet.TotalPoint).
		Set(walletVersionColumn, prevVersion+1).
		Set(walletUpdatedAtColumn, wallet.UpdatedAt).
		Where("id = ? AND version = ?", wallet.ID, prevVersion).
		ToSql()
	if err != nil {
		return fmt.Errorf("WalletRepo - UpdateWithVersion - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("WalletRepo - UpdateWithVersion - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("WalletRepo - UpdateWithVersion: %w", errs.ErrVersionConflict)
	}

	wallet.Version = prevVersion + 1

	return nil
}

func (r *WalletRepo) CreatePoint(ctx context.Context, point *entity.Point) error {
	sql, args, err := r.Builder.
		Insert(pointsTable).
		Columns(
			pointIDColumn,
			pointWalletIDColumn,
			pointAmountColumn,
			pointTypeColumn,
			pointCreatedAtColumn,
			pointExpiredAtColumn,
		).
		Values(
			point.ID,
			point.WalletID,
			point.Amount,
			point.TransactionType,
			point.CreatedAt,
			point.ExpiredAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("WalletRepo - CreatePoint - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("WalletRepo - CreatePoint - executor.Exec: %w", err)
	}

	return nil
}

// SumPoints supports reconciliation: sum(points.amount) must equal
// wallets.total_point.
func (r *WalletRepo) SumPoints(ctx context.Context, walletID uuid.UUID) (int64, error) {
	sql, args, err := r.Builder.
		Select("COALESCE(SUM(" + pointAmountColumn + "), 0)").
		From(pointsTable).
		Where("wallet_id = ?", walletID).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("WalletRepo - SumPoints - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var sum int64
	err = executor.QueryRow(ctx, sql, args...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("WalletRepo - SumPoints - executor.QueryRow: %w", err)
	}

	return sum, nil
}
