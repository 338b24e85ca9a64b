package services

import (
	"encoding/base64"
	"errors"

	"github.com/go-kit/log/level"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/metrics"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/mintbay/go-mintbay-server/util"
)

// SecretService encrypts and decrypts small secrets (TOTP seeds, wallet private
// keys) with the key resolved by the key service. Every ciphertext is stamped
// with the key version used so rotation never requires re-encrypting history.
type SecretService struct {
	keyService *CryptoKeyService
}

func NewSecretService(keyService *CryptoKeyService) *SecretService {
	return &SecretService{keyService: keyService}
}

// Encrypt seals the secret under the currently active key and binds it to the
// owning user id
func (ss *SecretService) Encrypt(secret []byte, userID string) (*types.EncryptedSecret, error) {
	key, err := ss.keyService.ActiveKey()
	if err != nil {
		return nil, err
	}
	material, dErr := base64.StdEncoding.DecodeString(key.Material)
	if dErr != nil {
		return nil, dErr
	}

	ciphertext, nonce, authTag, salt, eErr := util.EncryptSecret(material, secret, []byte(userID))
	if eErr != nil {
		return nil, eErr
	}
	return &types.EncryptedSecret{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		AuthTag:    base64.StdEncoding.EncodeToString(authTag),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		KeyVersion: key.Version,
	}, nil
}

// Decrypt opens the tuple with the key version stored in it, never the
// currently active one. A tag mismatch is treated as tampering and logged as a
// security event.
func (ss *SecretService) Decrypt(encrypted *types.EncryptedSecret, userID string) ([]byte, error) {
	key, err := ss.keyService.KeyByVersion(encrypted.KeyVersion)
	if err != nil {
		return nil, err
	}
	material, dErr := base64.StdEncoding.DecodeString(key.Material)
	if dErr != nil {
		return nil, dErr
	}

	ciphertext, cErr := base64.StdEncoding.DecodeString(encrypted.Ciphertext)
	if cErr != nil {
		return nil, types.ErrDecryptionFailed
	}
	nonce, nErr := base64.StdEncoding.DecodeString(encrypted.Nonce)
	if nErr != nil {
		return nil, types.ErrDecryptionFailed
	}
	authTag, tErr := base64.StdEncoding.DecodeString(encrypted.AuthTag)
	if tErr != nil {
		return nil, types.ErrDecryptionFailed
	}
	salt, sErr := base64.StdEncoding.DecodeString(encrypted.Salt)
	if sErr != nil {
		return nil, types.ErrDecryptionFailed
	}

	plaintext, oErr := util.DecryptSecret(material, ciphertext, nonce, authTag, salt, []byte(userID))
	if oErr != nil {
		if errors.Is(oErr, types.ErrDecryptionFailed) {
			metrics.DecryptionFailuresTotal.Inc()
			level.Error(global.Logger).Log("security", "secret authentication failed", "keyVersion", encrypted.KeyVersion, "userId", userID)
		}
		return nil, oErr
	}
	return plaintext, nil
}
