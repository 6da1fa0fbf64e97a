package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/orderflow/orderflow/internal/usecase"
	"github.com/orderflow/orderflow/pkg/logger"
)

func NewOrderRoutes(apiV1Group fiber.Router, saga usecase.SagaUseCase, wallet usecase.WalletUseCase, l logger.Interface) {
	r := &V1{saga: saga, wallet: wallet, logger: l}

	{
		apiV1Group.Post("/orders", r.createOrder)
		apiV1Group.Get("/orders/:id", r.getOrder)

		apiV1Group.Get("/wallets/:userId", r.getWallet)
		apiV1Group.Post("/wallets/:userId/charge", r.chargeWallet)
	}
}
