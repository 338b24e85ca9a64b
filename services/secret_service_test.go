package services

import (
	"errors"
	"testing"

	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/stretchr/testify/assert"
)

func newTestSecretService(t *testing.T, keys []types.CryptoKey) (*SecretService, *CryptoKeyService) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, keys)
	ks := NewCryptoKeyService(selector, "")
	return NewSecretService(ks), ks
}

func TestSecretRoundTrip(t *testing.T) {
	ss, _ := newTestSecretService(t, []types.CryptoKey{
		{Version: 1, Material: "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=", Status: types.KeyStatusActive},
	})

	encrypted, err := ss.Encrypt([]byte("totp seed material"), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, encrypted.KeyVersion)
	assert.NotEmpty(t, encrypted.Ciphertext)
	assert.NotEmpty(t, encrypted.Nonce)
	assert.NotEmpty(t, encrypted.AuthTag)
	assert.NotEmpty(t, encrypted.Salt)

	plaintext, dErr := ss.Decrypt(encrypted, "user-1")
	if dErr != nil {
		t.Fatal(dErr)
	}
	assert.Equal(t, []byte("totp seed material"), plaintext)
}

func TestDecryptSurvivesKeyRotation(t *testing.T) {
	ss, ks := newTestSecretService(t, []types.CryptoKey{
		{Version: 1, Material: "djEtbWF0ZXJpYWwtdjEtbWF0ZXJpYWw=", Status: types.KeyStatusActive},
	})

	encrypted, err := ss.Encrypt([]byte("wallet key"), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, encrypted.KeyVersion)

	// rotate: v2 becomes active, v1 is archived but retained
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "djEtbWF0ZXJpYWwtdjEtbWF0ZXJpYWw=", Status: types.KeyStatusArchived},
		{Version: 2, Material: "djItbWF0ZXJpYWwtdjItbWF0ZXJpYWw=", Status: types.KeyStatusActive},
	})
	ks.Invalidate()

	// new encryptions pick up v2
	fresh, eErr := ss.Encrypt([]byte("wallet key"), "user-1")
	if eErr != nil {
		t.Fatal(eErr)
	}
	assert.Equal(t, 2, fresh.KeyVersion)

	// old ciphertext still decrypts with its stamped version
	plaintext, dErr := ss.Decrypt(encrypted, "user-1")
	if dErr != nil {
		t.Fatal(dErr)
	}
	assert.Equal(t, []byte("wallet key"), plaintext)
}

func TestDecryptDestroyedKeyVersion(t *testing.T) {
	ss, ks := newTestSecretService(t, []types.CryptoKey{
		{Version: 1, Material: "djEtbWF0ZXJpYWwtdjEtbWF0ZXJpYWw=", Status: types.KeyStatusActive},
	})

	encrypted, err := ss.Encrypt([]byte("secret"), "user-1")
	if err != nil {
		t.Fatal(err)
	}

	// key deleted instead of archived: decryption must fail, not fall back
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 2, Material: "djItbWF0ZXJpYWwtdjItbWF0ZXJpYWw=", Status: types.KeyStatusActive},
	})
	ks.Invalidate()

	_, dErr := ss.Decrypt(encrypted, "user-1")
	assert.True(t, errors.Is(dErr, types.ErrKeyVersionNotFound))
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	ss, _ := newTestSecretService(t, []types.CryptoKey{
		{Version: 1, Material: "djEtbWF0ZXJpYWwtdjEtbWF0ZXJpYWw=", Status: types.KeyStatusActive},
	})

	encrypted, err := ss.Encrypt([]byte("secret"), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	encrypted.AuthTag = encrypted.Salt // wrong tag
	_, dErr := ss.Decrypt(encrypted, "user-1")
	assert.True(t, errors.Is(dErr, types.ErrDecryptionFailed))
}

func TestDecryptWrongOwner(t *testing.T) {
	ss, _ := newTestSecretService(t, []types.CryptoKey{
		{Version: 1, Material: "djEtbWF0ZXJpYWwtdjEtbWF0ZXJpYWw=", Status: types.KeyStatusActive},
	})

	encrypted, err := ss.Encrypt([]byte("secret"), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	_, dErr := ss.Decrypt(encrypted, "user-2")
	assert.True(t, errors.Is(dErr, types.ErrDecryptionFailed))
}
