package types

// asynq task type names
const (
	QueueTypeWithdrawalSettle = "withdrawal:settle"
)

// WithdrawalSettleTask is the payload of a withdrawal settlement task
type WithdrawalSettleTask struct {
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`
}
