package v1

import (
	"github.com/orderflow/orderflow/internal/usecase"
	"github.com/orderflow/orderflow/pkg/logger"
)

type V1 struct {
	saga   usecase.SagaUseCase
	wallet usecase.WalletUseCase
	logger logger.Interface
}
