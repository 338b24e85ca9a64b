package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mintbay/go-mintbay-server/api/interceptors"
	"github.com/mintbay/go-mintbay-server/services"
	"github.com/mintbay/go-mintbay-server/types"
)

type TwoFactorApi struct {
	userService *services.UserService
	totpService *services.TotpService
	validate    *validator.Validate
}

func NewTwoFactorApi(userService *services.UserService, totpService *services.TotpService) *TwoFactorApi {
	return &TwoFactorApi{
		userService: userService,
		totpService: totpService,
		validate:    validator.New(),
	}
}

func (ta *TwoFactorApi) currentUser(c *gin.Context) (*types.User, bool) {
	userID := c.GetString(interceptors.ContextUserIDKey)
	if userID == "" {
		ApiErrorf(c, http.StatusUnauthorized, "not authorized")
		return nil, false
	}
	user, err := ta.userService.GetByUserID(userID)
	if err != nil {
		ApiErrorf(c, http.StatusUnauthorized, "not authorized")
		return nil, false
	}
	return user, true
}

// Begin TOTP enrollment
// @Summary Begin TOTP enrollment
// @Description Generates a TOTP seed for the account. Two factor stays off until the first code is confirmed.
// @Tags Two Factor
// @Success 200 {object} types.TotpSetupOutput
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Failure 500 {object} api.ApiError "Internal server error"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/twofa/setup [post]
func (ta *TwoFactorApi) Setup(c *gin.Context) {
	user, ok := ta.currentUser(c)
	if !ok {
		return
	}
	if user.TotpEnabled {
		ApiErrorf(c, http.StatusConflict, "two factor already enabled")
		return
	}
	uri, err := ta.totpService.Setup(user)
	if err != nil {
		ApiErrorf(c, http.StatusInternalServerError, "failed to set up two factor")
		return
	}
	c.JSON(http.StatusOK, types.TotpSetupOutput{ProvisioningURI: uri})
}

// Confirm TOTP enrollment
// @Summary Confirm TOTP enrollment
// @Description Verifies the first code from the authenticator and turns two factor on.
// @Tags Two Factor
// @Param verification body types.InputTotpVerify true "verification input"
// @Success 200 {object} types.OK
// @Failure 400 {object} api.ApiError "Invalid code"
// @Failure 401 {object} api.ApiError "Not authorized"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Security Bearer
// @Router /api/v1/twofa/enable [post]
func (ta *TwoFactorApi) Enable(c *gin.Context) {
	user, ok := ta.currentUser(c)
	if !ok {
		return
	}
	var input types.InputTotpVerify
	if err := c.ShouldBindJSON(&input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid verification input")
		return
	}
	if vErr := ta.validate.Struct(input); vErr != nil {
		msg := ValidatorErrorToUser(vErr.(validator.ValidationErrors))
		ApiErrorf(c, http.StatusBadRequest, msg)
		return
	}
	if err := ta.totpService.Enable(user, input.Code); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid totp code")
		return
	}
	c.JSON(http.StatusOK, types.OK{IsOK: true})
}
