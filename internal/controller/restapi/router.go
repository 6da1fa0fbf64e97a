package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"github.com/orderflow/orderflow/config"
	v1 "github.com/orderflow/orderflow/internal/controller/restapi/v1"
	"github.com/orderflow/orderflow/internal/usecase"
	"github.com/orderflow/orderflow/pkg/logger"
)

// @title Orderflow
// @version 1.0.0
// @host localhost:8080
// @BasePath /v1
func NewRouter(app *fiber.App, cfg *config.Config, saga usecase.SagaUseCase, wallet usecase.WalletUseCase, l logger.Interface) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Routers
	apiV1Group := app.Group("/v1")
	{
		v1.NewOrderRoutes(apiV1Group, saga, wallet, l)
	}
}
