package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mintbay/go-mintbay-server/api/interceptors"
	"github.com/mintbay/go-mintbay-server/services"
	"github.com/mintbay/go-mintbay-server/types"
)

type UserAccountApi struct {
	userService   *services.UserService
	nonceService  *services.NonceService
	totpService   *services.TotpService
	walletService *services.WalletService
	validate      *validator.Validate
}

func NewUserAccountApi(userService *services.UserService, nonceService *services.NonceService, totpService *services.TotpService, walletService *services.WalletService) *UserAccountApi {
	return &UserAccountApi{
		userService:   userService,
		nonceService:  nonceService,
		totpService:   totpService,
		walletService: walletService,
		validate:      validator.New(),
	}
}

// consumeNonce checks the login challenge is fresh and burns it
func (ua *UserAccountApi) consumeNonce(nonce string) error {
	foundNonce, fnErr := ua.nonceService.GetNonce(nonce)
	if fnErr != nil {
		return fnErr
	}

	millisecondsNow := time.Now().UTC().UnixMilli() - int64(5*60*1000) // 5 minutes ago
	if foundNonce.Created < millisecondsNow {
		return errors.New("nonce expired")
	}

	// delete nonce from database (don't fail if nonce not found)
	ua.nonceService.DeleteNonce(foundNonce.Nonce)
	return nil
}

// Login and Registration challenge nonce
// @Summary Login and Registration challenge nonce
// @Description Returns a nonce which the client must present at login
// @Tags User Account
// @Success 200 {object} types.Nonce
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Failure 500 {object} api.ApiError "Internal server error"
// @Accept json
// @Produce json
// @Router /api/v1/nonce [get]
func (ua *UserAccountApi) ChallengeNonce(c *gin.Context) {
	// store nonce to the couchdb and expire it after N minutes
	nonce, err := ua.nonceService.CreateNonce()
	if err != nil {
		ApiErrorf(c, http.StatusInternalServerError, "Failed to generate nonce")
		return
	}
	c.JSON(http.StatusOK, nonce)
}

// Register a new account
// @Summary Register a new account
// @Description Creates a user and their custodial wallet
// @Tags User Account
// @Param registration body types.InputRegister true "registration input"
// @Success 201 {object} types.WalletOutput
// @Failure 400 {object} api.ApiError "Invalid or missing input parameters"
// @Failure 409 {object} api.ApiError "Email already registered"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Failure 500 {object} api.ApiError "Internal server error"
// @Accept json
// @Produce json
// @Router /api/v1/register [post]
func (ua *UserAccountApi) Register(c *gin.Context) {
	var input types.InputRegister
	if err := c.ShouldBindJSON(&input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid registration input")
		return
	}
	if vErr := ua.validate.Struct(input); vErr != nil {
		msg := ValidatorErrorToUser(vErr.(validator.ValidationErrors))
		ApiErrorf(c, http.StatusBadRequest, msg)
		return
	}

	user, err := ua.userService.Register(input.Email, input.Password)
	if err != nil {
		if errors.Is(err, types.ErrConflict) {
			ApiErrorf(c, http.StatusConflict, "email already registered")
			return
		}
		ApiErrorf(c, http.StatusInternalServerError, "failed to register user")
		return
	}

	wallet, wErr := ua.walletService.CreateWallet(user.UserID)
	if wErr != nil {
		ApiErrorf(c, http.StatusInternalServerError, "failed to create wallet")
		return
	}

	c.JSON(http.StatusCreated, types.WalletOutput{Address: wallet.Address, Created: wallet.Created})
}

// Login method
// @Summary Login with email and password
// @Description Returns a session token. Requires a fresh challenge nonce and, when enabled, a TOTP code.
// @Tags User Account
// @Param login body types.InputLogin true "login input"
// @Success 200 {object} types.JwtTokenOutput
// @Failure 400 {object} api.ApiError "Invalid or missing input parameters"
// @Failure 401 {object} api.ApiError "Invalid credentials"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Router /api/v1/login [post]
func (ua *UserAccountApi) Login(c *gin.Context) {
	var input types.InputLogin
	if err := c.ShouldBindJSON(&input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid email or password")
		return
	}
	if vErr := ua.validate.Struct(input); vErr != nil {
		msg := ValidatorErrorToUser(vErr.(validator.ValidationErrors))
		ApiErrorf(c, http.StatusBadRequest, msg)
		return
	}

	if nErr := ua.consumeNonce(input.Nonce); nErr != nil {
		if errors.Is(nErr, types.ErrNotFound) {
			ApiErrorf(c, http.StatusUnauthorized, "nonce not found")
			return
		}
		ApiErrorf(c, http.StatusUnauthorized, "challenge expired")
		return
	}

	user, err := ua.userService.Authenticate(input.Email, input.Password)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrNotAuthorized) {
			ApiErrorf(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		ApiErrorf(c, http.StatusInternalServerError, "failed to login")
		return
	}

	if user.TotpEnabled {
		if input.TotpCode == "" {
			ApiErrorf(c, http.StatusUnauthorized, "totp code required")
			return
		}
		valid, tErr := ua.totpService.Verify(user, input.TotpCode)
		if tErr != nil {
			ApiErrorf(c, http.StatusInternalServerError, "failed to verify totp code")
			return
		}
		if !valid {
			ApiErrorf(c, http.StatusUnauthorized, "invalid totp code")
			return
		}
	}

	token, tokErr := interceptors.CreateSessionToken(user.UserID, user.Email)
	if tokErr != nil {
		ApiErrorf(c, http.StatusInternalServerError, "failed to issue session token")
		return
	}
	c.JSON(http.StatusOK, types.JwtTokenOutput{Token: token})
}
