package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mintbay/go-mintbay-server/api/interceptors"
	"github.com/mintbay/go-mintbay-server/services"
	"github.com/mintbay/go-mintbay-server/types"
)

type WithdrawalApi struct {
	withdrawalService *services.WithdrawalService
	validate          *validator.Validate
}

func NewWithdrawalApi(withdrawalService *services.WithdrawalService) *WithdrawalApi {
	return &WithdrawalApi{
		withdrawalService: withdrawalService,
		validate:          validator.New(),
	}
}

// Request a withdrawal
// @Summary Request a withdrawal
// @Description Checks the per transaction, daily and weekly ceilings and queues the transfer for settlement.
// @Tags Withdrawal
// @Param withdrawal body types.InputWithdraw true "withdrawal input"
// @Success 202 {object} types.WithdrawalOutput
// @Failure 400 {object} api.ApiError "Invalid or missing input parameters"
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 403 {object} api.ApiError "Withdrawal limit exceeded"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Failure 500 {object} api.ApiError "Internal server error"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/withdraw [post]
func (wa *WithdrawalApi) Withdraw(c *gin.Context) {
	userID := c.GetString(interceptors.ContextUserIDKey)

	var input types.InputWithdraw
	if err := c.ShouldBindJSON(&input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid withdrawal input")
		return
	}
	if vErr := wa.validate.Struct(input); vErr != nil {
		msg := ValidatorErrorToUser(vErr.(validator.ValidationErrors))
		ApiErrorf(c, http.StatusBadRequest, msg)
		return
	}

	tx, decision, err := wa.withdrawalService.RequestWithdrawal(userID, input.AmountUSD, input.ToAddress)
	if err != nil {
		if errors.Is(err, types.ErrBadRequest) {
			ApiErrorf(c, http.StatusBadRequest, "withdrawal amount must be positive")
			return
		}
		// limit checks fail closed when the store is unreachable
		ApiErrorf(c, http.StatusInternalServerError, "failed to process withdrawal")
		return
	}
	if !decision.Allowed {
		ApiErrorf(c, http.StatusForbidden, decision.Reason)
		return
	}

	c.JSON(http.StatusAccepted, types.WithdrawalOutput{
		TransactionID: tx.TransactionID,
		AmountUSD:     tx.AmountUSD,
		Status:        tx.Status,
	})
}

// Get a withdrawal transaction
// @Summary Get a withdrawal transaction
// @Description Returns the current state of a withdrawal owned by the caller
// @Tags Withdrawal
// @Param id path string true "transaction id"
// @Success 200 {object} types.WithdrawalOutput
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 404 {object} api.ApiError "Transaction not found"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/withdraw/{id} [get]
func (wa *WithdrawalApi) GetTransaction(c *gin.Context) {
	userID := c.GetString(interceptors.ContextUserIDKey)
	txID := c.Param("id")
	if txID == "" {
		ApiErrorf(c, http.StatusBadRequest, "transaction id is required")
		return
	}

	tx, err := wa.withdrawalService.GetTransaction(txID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			ApiErrorf(c, http.StatusNotFound, "transaction not found")
			return
		}
		ApiErrorf(c, http.StatusInternalServerError, "failed to retrieve transaction")
		return
	}
	if tx.UserID != userID {
		ApiErrorf(c, http.StatusNotFound, "transaction not found")
		return
	}

	c.JSON(http.StatusOK, types.WithdrawalOutput{
		TransactionID: tx.TransactionID,
		AmountUSD:     tx.AmountUSD,
		Status:        tx.Status,
	})
}
