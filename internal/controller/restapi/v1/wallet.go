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

type chargeWalletRequest struct {
	Amount int64 `json:"amount"`
}

// @Summary  	Get wallet
// @Description Returns the wallet balance and current version
// @Tags 		wallets
// @Produce 	json
// @Param 		userId path string true "User ID"
// @Success 	200 {object} response.Wallet
// @Failure 	400 {object} response.Error "Malformed id"
// @Failure 	404 {object} response.Error "Wallet not found"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/wallets/{userId} [get]
func (r *V1) getWallet(ctx *fiber.Ctx) error {
	userID, err := uuid.Parse(ctx.Params("userId"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "userId must be a uuid")
	}

	wallet, err := r.wallet.GetByUserID(ctx.UserContext(), userID)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			return errorResponse(ctx, http.StatusNotFound, "wallet not found")
		}

		r.logger.Error(err, "restapi - v1 - getWallet")

		return errorResponse(ctx, http.StatusInternalServerError, "internal error")
	}

	return ctx.Status(http.StatusOK).JSON(toWalletResponse(wallet))
}

// @Summary  	Charge wallet
// @Description Tops up the wallet balance and appends a CHARGE ledger entry
// @Tags 		wallets
// @Accept 		json
// @Produce 	json
// @Param 		userId path string true "User ID"
// @Param 		charge body chargeWalletRequest true "Amount to add"
// @Success 	200 {object} response.Wallet
// @Failure 	400 {object} response.Error "Malformed body or wrong parameters"
// @Failure 	404 {object} response.Error "Wallet not found"
// @Failure 	409 {object} response.Error "Version conflict, retry"
// @Failure 	500 {object} response.Error "Internal"
// @Router 		/v1/wallets/{userId}/charge [post]
func (r *V1) chargeWallet(ctx *fiber.Ctx) error {
	userID, err := uuid.Parse(ctx.Params("userId"))
	if err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "userId must be a uuid")
	}

	var req chargeWalletRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	if req.Amount <= 0 {
		return errorResponse(ctx, http.StatusBadRequest, "amount must be positive")
	}

	wallet, err := r.wallet.Charge(ctx.UserContext(), userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrRecordNotFound):
			return errorResponse(ctx, http.StatusNotFound, "wallet not found")
		case errors.Is(err, errs.ErrVersionConflict):
			return errorResponse(ctx, http.StatusConflict, "wallet was updated concurrently, retry")
		}

		r.logger.Error(err, "restapi - v1 - chargeWallet")

		return errorResponse(ctx, http.StatusInternalServerError, "internal error")
	}

	return ctx.Status(http.StatusOK).JSON(toWalletResponse(wallet))
}

func toWalletResponse(wallet *entity.Wallet) response.Wallet {
	return response.Wallet{
		WalletID:   wallet.ID.String(),
		UserID:     wallet.UserID.String(),
		TotalPoint: wallet.TotalPoint,
		Version:    wallet.Version,
	}
}
