package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/services"
	"github.com/mintbay/go-mintbay-server/types"
)

// SettlementQueue processes withdrawal settlement tasks. Settlement here means
// flipping the pending transaction to completed once the payout leaves the
// custodial wallet; the broadcast itself is delegated to the payment backend.
type SettlementQueue struct {
	withdrawalService *services.WithdrawalService
}

func NewSettlementQueue(dbSelector repository.DBSelector, env *types.Environment) *SettlementQueue {
	return &SettlementQueue{
		withdrawalService: services.NewWithdrawalService(dbSelector, env, global.Conf.Wallet),
	}
}

// ProcessWithdrawalSettleTask handles a single settlement task
func (sq *SettlementQueue) ProcessWithdrawalSettleTask(ctx context.Context, task *asynq.Task) error {
	var payload types.WithdrawalSettleTask
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid settlement payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := sq.withdrawalService.MarkSettled(payload.TransactionID, types.TransactionStatusCompleted); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			global.Logger.Log("msg", "settlement for unknown transaction", "transactionId", payload.TransactionID)
			return fmt.Errorf("transaction not found: %w", asynq.SkipRetry)
		}
		return err
	}
	global.Logger.Log("msg", "withdrawal settled", "transactionId", payload.TransactionID, "userId", payload.UserID)
	return nil
}
