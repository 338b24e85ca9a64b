package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/metrics"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
)

// default withdrawal ceilings in USD
const (
	DefaultPerTransactionLimitUSD = 5000
	DefaultDailyLimitUSD          = 10000
	DefaultWeeklyLimitUSD         = 50000
)

// WithdrawalDecision is the structured outcome of a limit check. A denial is a
// value with a user-facing reason, not an error.
type WithdrawalDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// WithdrawalService aggregates a user's recent withdrawal volume and enforces
// per-transaction, daily and weekly ceilings. The daily window rolls from local
// midnight, the weekly window is 7x24h backward from now. Pending withdrawals
// count toward both windows so rapid-fire requests cannot evade the cap before
// settlement.
type WithdrawalService struct {
	txRepo repository.Repository
	env    *types.Environment

	perTxLimit  float64
	dailyLimit  float64
	weeklyLimit float64

	now func() time.Time
}

func NewWithdrawalService(dbSelector repository.DBSelector, env *types.Environment, conf global.WalletConfig) *WithdrawalService {
	txRepo, err := dbSelector.ChooseDB(repository.Transactions)
	if err != nil {
		panic(err)
	}
	ws := &WithdrawalService{
		txRepo:      txRepo,
		env:         env,
		perTxLimit:  DefaultPerTransactionLimitUSD,
		dailyLimit:  DefaultDailyLimitUSD,
		weeklyLimit: DefaultWeeklyLimitUSD,
		now:         time.Now,
	}
	if conf.PerTransactionLimitUSD > 0 {
		ws.perTxLimit = conf.PerTransactionLimitUSD
	}
	if conf.DailyLimitUSD > 0 {
		ws.dailyLimit = conf.DailyLimitUSD
	}
	if conf.WeeklyLimitUSD > 0 {
		ws.weeklyLimit = conf.WeeklyLimitUSD
	}
	return ws
}

// SetClock overrides the time source (tests only)
func (ws *WithdrawalService) SetClock(now func() time.Time) {
	ws.now = now
}

// CheckLimit decides whether a withdrawal of amountUSD may proceed. A store
// failure is returned as an error so callers fail closed: without visibility
// into recent history no withdrawal can be safely approved.
func (ws *WithdrawalService) CheckLimit(userID string, amountUSD float64) (*WithdrawalDecision, error) {
	if amountUSD <= 0 {
		return nil, types.ErrBadRequest
	}
	if amountUSD > ws.perTxLimit {
		return &WithdrawalDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("amount exceeds the per-transaction limit of $%.2f", ws.perTxLimit),
		}, nil
	}

	now := ws.now()
	weekStart := now.Add(-7 * 24 * time.Hour)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	recent, err := ws.recentWithdrawals(userID, weekStart)
	if err != nil {
		return nil, err
	}

	var dailySum, weeklySum float64
	for _, tx := range recent {
		weeklySum += tx.AmountUSD
		if tx.Created >= dayStart.UnixMilli() {
			dailySum += tx.AmountUSD
		}
	}

	if dailySum+amountUSD > ws.dailyLimit {
		remaining := ws.dailyLimit - dailySum
		if remaining < 0 {
			remaining = 0
		}
		return &WithdrawalDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("daily withdrawal limit exceeded, $%.2f remaining today", remaining),
		}, nil
	}
	if weeklySum+amountUSD > ws.weeklyLimit {
		remaining := ws.weeklyLimit - weeklySum
		if remaining < 0 {
			remaining = 0
		}
		return &WithdrawalDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("weekly withdrawal limit exceeded, $%.2f remaining this week", remaining),
		}, nil
	}

	return &WithdrawalDecision{Allowed: true}, nil
}

// RequestWithdrawal runs the limit check and, when allowed, writes the pending
// transaction in the same logical step so a concurrent request sees it in its
// aggregate, then enqueues settlement. The check-to-write race is narrowed, not
// eliminated; a transactional read-modify-write would close it fully.
func (ws *WithdrawalService) RequestWithdrawal(userID string, amountUSD float64, toAddress string) (*types.Transaction, *WithdrawalDecision, error) {
	decision, err := ws.CheckLimit(userID, amountUSD)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		metrics.WithdrawalsDeniedTotal.Inc()
		return nil, decision, nil
	}

	tx := &types.Transaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Type:          types.TransactionTypeWithdrawal,
		AmountUSD:     amountUSD,
		ToAddress:     toAddress,
		Status:        types.TransactionStatusPending,
		Created:       ws.now().UTC().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if sErr := ws.txRepo.Save(ctx, tx.TransactionID, tx); sErr != nil {
		return nil, nil, sErr
	}
	metrics.WithdrawalsAcceptedTotal.Inc()

	ws.enqueueSettlement(tx)
	return tx, decision, nil
}

// GetTransaction returns a transaction by its id
func (ws *WithdrawalService) GetTransaction(transactionID string) (*types.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := ws.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	var tx types.Transaction
	if mErr := repository.MapToObject(response, &tx); mErr != nil {
		return nil, mErr
	}
	return &tx, nil
}

// MarkSettled flips a pending withdrawal to its terminal status
func (ws *WithdrawalService) MarkSettled(transactionID string, status string) error {
	tx, err := ws.GetTransaction(transactionID)
	if err != nil {
		return err
	}
	if tx.Status != types.TransactionStatusPending {
		return nil
	}
	tx.Status = status
	tx.Settled = ws.now().UTC().UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	return ws.txRepo.Update(ctx, transactionID, tx)
}

func (ws *WithdrawalService) recentWithdrawals(userID string, since time.Time) ([]types.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := ws.txRepo.Find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{
			"userId": userID,
			"type":   types.TransactionTypeWithdrawal,
			"status": map[string]interface{}{
				"$in": []string{types.TransactionStatusPending, types.TransactionStatusCompleted},
			},
			"created": map[string]interface{}{
				"$gte": since.UnixMilli(),
			},
		},
		"limit": 1000,
	})
	if err != nil {
		return nil, err
	}
	var transactions []types.Transaction
	if mErr := repository.MapToFindResults(response, &transactions); mErr != nil {
		return nil, mErr
	}
	return transactions, nil
}

func (ws *WithdrawalService) enqueueSettlement(tx *types.Transaction) {
	if ws.env == nil || ws.env.TaskClient == nil {
		return
	}
	payload, mErr := json.Marshal(types.WithdrawalSettleTask{
		TransactionID: tx.TransactionID,
		UserID:        tx.UserID,
	})
	if mErr != nil {
		level.Error(global.Logger).Log("msg", "failed to marshal settlement task", "err", mErr.Error())
		return
	}
	task := asynq.NewTask(types.QueueTypeWithdrawalSettle, payload)
	if _, qErr := ws.env.TaskClient.Enqueue(task, asynq.MaxRetry(3)); qErr != nil {
		level.Error(global.Logger).Log("msg", "failed to enqueue settlement task", "transactionId", tx.TransactionID, "err", qErr.Error())
	}
}
