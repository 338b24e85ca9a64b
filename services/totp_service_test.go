package services

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/stretchr/testify/assert"
)

func newTestTotpService(t *testing.T) *TotpService {
	selector := newMockSelector(t, repository.Users, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=", Status: types.KeyStatusActive},
	})
	registerUserSave()

	userService := NewUserService(selector)
	secretService := NewSecretService(NewCryptoKeyService(selector, ""))
	return NewTotpService(userService, secretService)
}

func TestTotpSetup(t *testing.T) {
	ts := newTestTotpService(t)
	user := &types.User{UserID: "u-1", Email: "alice@example.com"}

	uri, err := ts.Setup(user)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "alice%40example.com")
	assert.NotNil(t, user.TotpSecret)
	assert.False(t, user.TotpEnabled)
	assert.Equal(t, 1, user.TotpSecret.KeyVersion)

	// the seed in the QR code matches the one stored through the codec
	parsed, pErr := url.Parse(uri)
	if pErr != nil {
		t.Fatal(pErr)
	}
	stored, sErr := ts.SecretBase32(user)
	if sErr != nil {
		t.Fatal(sErr)
	}
	assert.Equal(t, parsed.Query().Get("secret"), stored)
}

func TestEnableRejectsWrongCode(t *testing.T) {
	ts := newTestTotpService(t)
	user := &types.User{UserID: "u-1", Email: "alice@example.com"}

	if _, err := ts.Setup(user); err != nil {
		t.Fatal(err)
	}

	err := ts.Enable(user, "000000")
	assert.True(t, errors.Is(err, types.ErrNotAuthorized))
	assert.False(t, user.TotpEnabled)
}

func TestVerifyRequiresEnabled(t *testing.T) {
	ts := newTestTotpService(t)
	user := &types.User{UserID: "u-1", Email: "alice@example.com"}

	if _, err := ts.Setup(user); err != nil {
		t.Fatal(err)
	}

	_, err := ts.Verify(user, "123456")
	assert.True(t, errors.Is(err, types.ErrBadRequest))
}
