package types

const (
	KeyStatusActive   = "active"
	KeyStatusArchived = "archived"
)

// CryptoKey is a versioned symmetric encryption key. Keys are immutable once
// created; only Status moves active -> archived when a newer version supersedes
// it. Version 0 is reserved for the environment master key fallback.
type CryptoKey struct {
	BaseDocument `json:",inline"`
	Version      int    `json:"version"`
	Material     string `json:"material"` // base64 key material
	Status       string `json:"status"`
	Created      int64  `json:"created"` // created timestamp (unix millis)
}
