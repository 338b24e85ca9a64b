package types

// User account document. TotpSecret is stored only in encrypted form.
type User struct {
	BaseDocument `json:",inline"`
	UserID       string           `json:"userId"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"passwordHash"` // base64 scrypt
	PasswordSalt string           `json:"passwordSalt"` // base64
	TotpEnabled  bool             `json:"totpEnabled"`
	TotpSecret   *EncryptedSecret `json:"totpSecret,omitempty"`
	Created      int64            `json:"created"`
}

// Wallet holds a user's custodial wallet. The private key material never leaves
// the server and is persisted only as an EncryptedSecret.
type Wallet struct {
	BaseDocument `json:",inline"`
	Address      string          `json:"address"`
	UserID       string          `json:"userId"`
	PrivateKey   EncryptedSecret `json:"privateKey"`
	Created      int64           `json:"created"`
}
