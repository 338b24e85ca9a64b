package services

import (
	"encoding/base32"
	"time"

	"github.com/mintbay/go-mintbay-server/types"
	"github.com/mintbay/go-mintbay-server/util"
)

const totpIssuer = "Mintbay"

// TotpService manages two factor authentication seeds. Seeds are persisted only
// through the secret codec, stamped with the key version used.
type TotpService struct {
	userService   *UserService
	secretService *SecretService
}

func NewTotpService(userService *UserService, secretService *SecretService) *TotpService {
	return &TotpService{userService: userService, secretService: secretService}
}

// Setup generates a fresh seed, stores it encrypted against the user and
// returns the provisioning URI for the enrollment QR code. 2FA stays disabled
// until the first code is verified through Enable.
func (ts *TotpService) Setup(user *types.User) (string, error) {
	raw, encoded, err := util.GenerateTotpSecret()
	if err != nil {
		return "", err
	}
	encrypted, eErr := ts.secretService.Encrypt(raw, user.UserID)
	if eErr != nil {
		return "", eErr
	}
	user.TotpSecret = encrypted
	user.TotpEnabled = false
	if uErr := ts.userService.UpdateUser(user); uErr != nil {
		return "", uErr
	}
	return util.TotpProvisioningURI(encoded, user.Email, totpIssuer), nil
}

// Enable turns 2FA on once the user proves possession of the seed
func (ts *TotpService) Enable(user *types.User, code string) error {
	ok, err := ts.verify(user, code)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrNotAuthorized
	}
	user.TotpEnabled = true
	return ts.userService.UpdateUser(user)
}

// Verify checks a login code for a user with 2FA enabled
func (ts *TotpService) Verify(user *types.User, code string) (bool, error) {
	if !user.TotpEnabled {
		return false, types.ErrBadRequest
	}
	return ts.verify(user, code)
}

func (ts *TotpService) verify(user *types.User, code string) (bool, error) {
	if user.TotpSecret == nil {
		return false, types.ErrBadRequest
	}
	raw, err := ts.secretService.Decrypt(user.TotpSecret, user.UserID)
	if err != nil {
		return false, err
	}
	return util.VerifyTotp(raw, code, time.Now()), nil
}

// SecretBase32 re-encodes the stored seed, used when re-showing the enrollment QR
func (ts *TotpService) SecretBase32(user *types.User) (string, error) {
	if user.TotpSecret == nil {
		return "", types.ErrNotFound
	}
	raw, err := ts.secretService.Decrypt(user.TotpSecret, user.UserID)
	if err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}
