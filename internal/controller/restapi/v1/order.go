package v1

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/controller/restapi/v1/response"
	"github.com/orderflow/orderflow/internal/entity"
	"github.com/orderflow/orderflow/pkg/types/errs"
)

type createOrderRequest struct {
	UserID string                   `json:"user_id"`
	Items  []createOrderRequestItem `json:"items"`
}

type createOrderRequestItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// @Summary  	Create order
// @Description Creates a PENDING_PAYMENT order with a price snapshot and enqueues the order.created event
// @Tags 		orders
// @Accept 		json
// @Produce 	json
// @Param 		order body createOrderRequest true "Order to create"
// @Success 	201 {object} response.Order
// @Failure 	400 {object} response.Error "Malformed body or wrong parameters"
// @Failure 	404 {object} response.Error "Unknown user or product"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/orders [post]
func (r *V1) createOrder(ctx *fiber.Ctx) error {
	var req createOrderRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	// 1. validate parameters
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "user_id must be a uuid")
	}

	if len(req.Items) == 0 {
		return errorResponse(ctx, http.StatusBadRequest, "items must not be empty")
	}

	items := make([]entity.OrderItem, 0, len(req.Items))

	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return errorResponse(ctx, http.StatusBadRequest, "product_id must be a uuid")
		}

		if item.Quantity <= 0 {
			return errorResponse(ctx, http.StatusBadRequest, "quantity must be positive")
		}

		items = append(items, entity.OrderItem{ProductID: productID, Quantity: item.Quantity})
	}

	// 2. create the order
	order, err := r.saga.CreateOrder(ctx.UserContext(), userID, items)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "user or product not found")
		}

		r.logger.Error(err, "restapi - v1 - createOrder")

		return errorResponse(ctx, http.StatusInternalServerError, "internal error")
	}

	return ctx.Status(http.StatusCreated).JSON(toOrderResponse(order))
}

// @Summary  	Get order
// @Description Returns the order with its items and current saga status
// @Tags 		orders
// @Produce 	json
// @Param 		id path string true "Order ID"
// @Success 	200 {object} response.Order
// @Failure 	400 {object} response.Error "Malformed id"
// @Failure 	404 {object} response.Error "Order not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/orders/{id} [get]
func (r *V1) getOrder(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "id must be a uuid")
	}

	order, err := r.saga.GetOrder(ctx.UserContext(), id)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "order not found")
		}

		r.logger.Error(err, "restapi - v1 - getOrder")

		return errorResponse(ctx, http.StatusInternalServerError, "internal error")
	}

	return ctx.Status(http.StatusOK).JSON(toOrderResponse(order))
}

func toOrderResponse(order *entity.Order) response.Order {
	items := make([]response.OrderItem, 0, len(order.Items))

	for _, item := range order.Items {
		items = append(items, response.OrderItem{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return response.Order{
		OrderID:   order.ID.String(),
		UserID:    order.UserID.String(),
		Status:    string(order.Status),
		Items:     items,
		Total:     order.TotalAmount(),
		CreatedAt: order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
