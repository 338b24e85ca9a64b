package types

// EncryptedSecret is the full tuple produced by the secret codec. The tuple is
// bound permanently to the key version that was active at encryption time;
// decryption resolves the key by KeyVersion, never by the currently active one.
// Callers must persist all fields, not just the ciphertext.
type EncryptedSecret struct {
	Ciphertext string `json:"ciphertext"` // base64
	Nonce      string `json:"nonce"`      // base64
	AuthTag    string `json:"authTag"`    // base64 GCM tag
	Salt       string `json:"salt"`       // base64 key derivation salt
	KeyVersion int    `json:"keyVersion"`
}
