package types

import "errors"

var (
	// ErrNotFound is returned when a document doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the resource conflicts (e.g. update of old revision)
	ErrConflict = errors.New("conflict")

	// ErrBadRequest is returned on malformed input
	ErrBadRequest = errors.New("bad request")

	// ErrNotAuthorized is returned when the caller has no access to the resource
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInternal (for unhandled exceptions)
	ErrInternal = errors.New("internal error")

	// ErrInvalidEmail is returned when the email is invalid
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrKeySourceUnavailable is returned when neither the key store nor the
	// environment master key can be resolved. Fatal for any encryption operation.
	ErrKeySourceUnavailable = errors.New("encryption key source unavailable")

	// ErrNoActiveKey is returned when the resolved key list is empty
	ErrNoActiveKey = errors.New("no active encryption key")

	// ErrKeyVersionNotFound is returned when a decryption key version is absent.
	// Decryption must never fall back to a different version.
	ErrKeyVersionNotFound = errors.New("encryption key version not found")

	// ErrDecryptionFailed is returned on authentication tag mismatch
	// (tampered or corrupted ciphertext). Treated as a security event.
	ErrDecryptionFailed = errors.New("decryption failed")
)
