package types

const (
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeDeposit    = "deposit"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction is a wallet funds movement. Withdrawals are written with
// status pending before settlement so that concurrent limit checks see them.
type Transaction struct {
	BaseDocument `json:",inline"`
	TransactionID string  `json:"transactionId"`
	UserID        string  `json:"userId"`
	Type          string  `json:"type"`
	AmountUSD     float64 `json:"amountUsd"`
	ToAddress     string  `json:"toAddress,omitempty"`
	Status        string  `json:"status"`
	Created       int64   `json:"created"`           // created timestamp (unix millis)
	Settled       int64   `json:"settled,omitempty"` // settlement timestamp (unix millis)
}
