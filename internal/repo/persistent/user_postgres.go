package persistent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/pkg/postgres"
)

const usersTable = "users"

type UserRepo struct {
	*postgres.Postgres
}

func NewUserRepo(pg *postgres.Postgres) *UserRepo {
	return &UserRepo{pg}
}

func (r *UserRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	sql, args, err := r.Builder.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(usersTable).
		Where("id = ?", id).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("UserRepo - Exists - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var exists bool
	err = executor.QueryRow(ctx, sql, args...).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("UserRepo - Exists - executor.QueryRow: %w", err)
	}

	return exists, nil
}
