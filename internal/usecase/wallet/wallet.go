package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/internal/repo"
)

type WalletUseCase struct {
	walletRepo repo.WalletRepo
	transactor repo.Transactor
}

func New(walletRepo repo.WalletRepo, transactor repo.Transactor) *WalletUseCase {
	return &WalletUseCase{
		walletRepo: walletRepo,
		transactor: transactor,
	}
}

// Charge adds points through the optimistic CAS path. A lost race surfaces
// errs.ErrVersionConflict to the caller; retrying is the caller's decision.
func (uc *WalletUseCase) Charge(ctx context.Context, userID uuid.UUID, amount int64) (*entity.Wallet, error) {
	var wallet *entity.Wallet

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		wallet, err = uc.walletRepo.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("uc.walletRepo.GetByUserID: %w", err)
		}

		prevVersion := wallet.Version
		point := wallet.Charge(amount)

		if err := uc.walletRepo.UpdateWithVersion(ctx, wallet, prevVersion); err != nil {
			return fmt.Errorf("uc.walletRepo.UpdateWithVersion: %w", err)
		}

		if err := uc.walletRepo.CreatePoint(ctx, point); err != nil {
			return fmt.Errorf("uc.walletRepo.CreatePoint: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("WalletUseCase - Charge - uc.transactor.WithinTransaction: %w", err)
	}

	return wallet, nil
}

func (uc *WalletUseCase) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Wallet, error) {
	wallet, err := uc.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("WalletUseCase - GetByUserID - uc.walletRepo.GetByUserID: %w", err)
	}

	return wallet, nil
}

// Reconcile checks the ledger invariant: the sum of Point amounts must
// match the wallet balance.
func (uc *WalletUseCase) Reconcile(ctx context.Context, userID uuid.UUID) (bool, error) {
	wallet, err := uc.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("WalletUseCase - Reconcile - uc.walletRepo.GetByUserID: %w", err)
	}

	sum, err := uc.walletRepo.SumPoints(ctx, wallet.ID)
	if err != nil {
		return false, fmt.Errorf("WalletUseCase - Reconcile - uc.walletRepo.SumPoints: %w", err)
	}

	return sum == wallet.TotalPoint, nil
}
