package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	src "math/rand"

	"github.com/mintbay/go-mintbay-server/types"
	"golang.org/x/crypto/scrypt"
)

var (
	scryptN   = 32768 // N = CPU/memory cost parameter (suitable as of 2017)
	scryptR   = 8     // r and p must satisfy r * p < 2^30
	scryptP   = 1
	scryptLen = 32 // 32 bytes long
)

const (
	saltLength   = 16
	gcmTagLength = 16
)

// DeriveKey stretches raw key material into an AES-256 key with scrypt
func DeriveKey(material []byte, salt []byte) ([]byte, error) {
	return scrypt.Key(material, salt, scryptN, scryptR, scryptP, scryptLen)
}

// EncryptSecret seals plaintext with AES-256-GCM under a key derived from
// material and a fresh random salt. Nonce and salt are fresh per call; the
// authentication tag is returned separately so callers can persist the full
// tuple. aad binds the ciphertext to its owner (e.g. user id) and must match at
// decryption time. Returns ciphertext, nonce, authTag, salt.
func EncryptSecret(material []byte, plaintext []byte, aad []byte) ([]byte, []byte, []byte, []byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, nil, nil, err
	}
	key, err := DeriveKey(material, salt)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, nil, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, aad)
	ciphertext := sealed[:len(sealed)-gcmTagLength]
	authTag := sealed[len(sealed)-gcmTagLength:]
	return ciphertext, nonce, authTag, salt, nil
}

// DecryptSecret opens a tuple produced by EncryptSecret. A tag mismatch
// (tampered or corrupted ciphertext) returns types.ErrDecryptionFailed, never
// corrupted plaintext.
func DecryptSecret(material []byte, ciphertext, nonce, authTag, salt []byte, aad []byte) ([]byte, error) {
	key, err := DeriveKey(material, salt)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() || len(authTag) != gcmTagLength {
		return nil, types.ErrDecryptionFailed
	}

	sealed := append(append([]byte{}, ciphertext...), authTag...)
	plaintext, openErr := gcm.Open(nil, nonce, sealed, aad)
	if openErr != nil {
		return nil, types.ErrDecryptionFailed
	}
	return plaintext, nil
}

// HashPassword returns base64 scrypt hash and salt of the password
func HashPassword(password string) (string, string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}
	dk, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptLen)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(dk), base64.StdEncoding.EncodeToString(salt), nil
}

// VerifyPassword compares a password against its stored hash in constant time
func VerifyPassword(password string, hashBase64 string, saltBase64 string) (bool, error) {
	salt, err := base64.StdEncoding.DecodeString(saltBase64)
	if err != nil {
		return false, err
	}
	stored, err := base64.StdEncoding.DecodeString(hashBase64)
	if err != nil {
		return false, err
	}
	dk, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptLen)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(dk, stored) == 1, nil
}

// GenerateKeyMaterial returns n random bytes base64 encoded (encryption keys,
// wallet key material)
func GenerateKeyMaterial(n int) (string, error) {
	material := make([]byte, n)
	if _, err := rand.Read(material); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(material), nil
}

// WalletAddressFromKey derives the 0x wallet address shown to users from the
// raw private key material
func WalletAddressFromKey(keyMaterial []byte) string {
	h := sha256.New()
	h.Write(keyMaterial)
	output := hex.EncodeToString(h.Sum(nil))
	return "0x" + output[64-40:64]
}

// Sha256Hex returns the sha256 hash of the data as a hex string
func Sha256Hex(data []byte) string {
	hash := sha256.New()
	hash.Write(data)
	sum := hash.Sum(nil)
	return hex.EncodeToString(sum)
}

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

// Generates a random nonce of custom length in bytes
// method based on https://stackoverflow.com/questions/22892120/how-to-generate-a-random-string-of-a-fixed-length-in-go
// 5. Masking improved version
func GenerateNonce(n int) string {
	b := make([]byte, n)
	// A src.Int63() generates 63 random bits, enough for letterIdxMax characters!
	for i, cache, remain := n-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}

	return string(b)
}
