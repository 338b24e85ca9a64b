package api

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mintbay/go-mintbay-server/api/interceptors"
	"github.com/mintbay/go-mintbay-server/services"
	"github.com/mintbay/go-mintbay-server/types"
)

type WalletApi struct {
	walletService *services.WalletService
	userService   *services.UserService
	validate      *validator.Validate
}

func NewWalletApi(walletService *services.WalletService, userService *services.UserService) *WalletApi {
	return &WalletApi{
		walletService: walletService,
		userService:   userService,
		validate:      validator.New(),
	}
}

// Get the caller's wallet
// @Summary Get the caller's wallet
// @Description Returns the custodial wallet address. Key material never leaves the vault here.
// @Tags Wallet
// @Success 200 {object} types.WalletOutput
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 404 {object} api.ApiError "Wallet not found"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/wallet [get]
func (wa *WalletApi) GetWallet(c *gin.Context) {
	userID := c.GetString(interceptors.ContextUserIDKey)
	wallet, err := wa.walletService.GetWallet(userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			ApiErrorf(c, http.StatusNotFound, "wallet not found")
			return
		}
		ApiErrorf(c, http.StatusInternalServerError, "failed to retrieve wallet")
		return
	}
	c.JSON(http.StatusOK, types.WalletOutput{Address: wallet.Address, Created: wallet.Created})
}

// Unlock the caller's wallet
// @Summary Unlock the caller's wallet
// @Description Re-authenticates with the account password and returns the decrypted signing key, base64 encoded.
// @Tags Wallet
// @Param unlock body types.InputWalletUnlock true "unlock input"
// @Success 200 {object} map[string]string
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 404 {object} api.ApiError "Wallet not found"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/wallet/unlock [post]
func (wa *WalletApi) UnlockWallet(c *gin.Context) {
	userID := c.GetString(interceptors.ContextUserIDKey)
	email := c.GetString(interceptors.ContextEmailKey)

	var input types.InputWalletUnlock
	if err := c.ShouldBindJSON(&input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid unlock input")
		return
	}
	if vErr := wa.validate.Struct(input); vErr != nil {
		msg := ValidatorErrorToUser(vErr.(validator.ValidationErrors))
		ApiErrorf(c, http.StatusBadRequest, msg)
		return
	}

	// session token alone is not enough to export key material
	if _, aErr := wa.userService.Authenticate(email, input.Password); aErr != nil {
		ApiErrorf(c, http.StatusUnauthorized, "invalid password")
		return
	}

	key, err := wa.walletService.UnlockWallet(userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			ApiErrorf(c, http.StatusNotFound, "wallet not found")
			return
		}
		ApiErrorf(c, http.StatusInternalServerError, "failed to unlock wallet")
		return
	}
	c.JSON(http.StatusOK, gin.H{"privateKey": base64.StdEncoding.EncodeToString(key)})
}
