package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/pkg/types/errs"
)

func TestWallet_Charge(t *testing.T) {
	wallet := &Wallet{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		TotalPoint: 500,
		Version:    3,
	}

	point := wallet.Charge(200)

	require.NotNil(t, point)
	assert.Equal(t, int64(700), wallet.TotalPoint)
	assert.Equal(t, wallet.ID, point.WalletID)
	assert.Equal(t, int64(200), point.Amount)
	assert.Equal(t, TransactionCharge, point.TransactionType)
}

func TestWallet_Debit(t *testing.T) {
	tests := []struct {
		name          string
		balance       int64
		amount        int64
		expectedErr   error
		expectedAfter int64
	}{
		{
			name:          "sufficient balance",
			balance:       1000,
			amount:        400,
			expectedAfter: 600,
		},
		{
			name:          "exact balance",
			balance:       400,
			amount:        400,
			expectedAfter: 0,
		},
		{
			name:          "insufficient balance leaves wallet untouched",
			balance:       100,
			amount:        400,
			expectedErr:   errs.ErrInsufficientBalance,
			expectedAfter: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet := &Wallet{
				ID:         uuid.New(),
				UserID:     uuid.New(),
				TotalPoint: tt.balance,
			}

			point, err := wallet.Debit(tt.amount)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, point)
			} else {
				require.NoError(t, err)
				require.NotNil(t, point)
				assert.Equal(t, -tt.amount, point.Amount)
				assert.Equal(t, TransactionPayment, point.TransactionType)
			}

			assert.Equal(t, tt.expectedAfter, wallet.TotalPoint)
		})
	}
}
