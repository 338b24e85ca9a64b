package services

import (
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func newTestWithdrawalService(t *testing.T) *WithdrawalService {
	selector := newMockSelector(t, repository.Transactions)
	ws := NewWithdrawalService(selector, nil, global.WalletConfig{})
	ws.SetClock(func() time.Time { return testNow })
	return ws
}

func withdrawal(amountUSD float64, status string, age time.Duration) types.Transaction {
	return types.Transaction{
		UserID:    "user-1",
		Type:      types.TransactionTypeWithdrawal,
		AmountUSD: amountUSD,
		Status:    status,
		Created:   testNow.Add(-age).UnixMilli(),
	}
}

func TestCheckLimitPerTransactionCeiling(t *testing.T) {
	ws := newTestWithdrawalService(t)
	registerFindDocs(repository.Transactions, []types.Transaction{})

	decision, err := ws.CheckLimit("user-1", 6000)
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "per-transaction limit")
}

func TestCheckLimitDailyCeiling(t *testing.T) {
	ws := newTestWithdrawalService(t)
	registerFindDocs(repository.Transactions, []types.Transaction{
		withdrawal(4000, types.TransactionStatusCompleted, 2*time.Hour),
	})

	// 4000 today: 6500 more would cross the 10000 daily ceiling
	decision, err := ws.CheckLimit("user-1", 6500)
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "daily")
	assert.Contains(t, decision.Reason, "$6000.00")

	// 3000 still fits
	decision, err = ws.CheckLimit("user-1", 3000)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, decision.Allowed)
}

func TestCheckLimitWeeklyCeiling(t *testing.T) {
	ws := newTestWithdrawalService(t)
	registerFindDocs(repository.Transactions, []types.Transaction{
		withdrawal(5000, types.TransactionStatusCompleted, 2*24*time.Hour),
		withdrawal(5000, types.TransactionStatusCompleted, 3*24*time.Hour),
		withdrawal(5000, types.TransactionStatusCompleted, 3*24*time.Hour),
		withdrawal(5000, types.TransactionStatusCompleted, 4*24*time.Hour),
		withdrawal(5000, types.TransactionStatusCompleted, 4*24*time.Hour),
		withdrawal(5000, types.TransactionStatusCompleted, 5*24*time.Hour),
		withdrawal(5000, types.TransactionStatusCompleted, 5*24*time.Hour),
		withdrawal(5000, types.TransactionStatusCompleted, 6*24*time.Hour),
		withdrawal(4000, types.TransactionStatusCompleted, 6*24*time.Hour),
		withdrawal(4000, types.TransactionStatusCompleted, 6*24*time.Hour),
	})

	// 48000 this week: 3000 more would cross the 50000 weekly ceiling
	decision, err := ws.CheckLimit("user-1", 3000)
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "weekly")
	assert.Contains(t, decision.Reason, "$2000.00")

	decision, err = ws.CheckLimit("user-1", 2000)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, decision.Allowed)
}

func TestPendingWithdrawalsCountTowardLimits(t *testing.T) {
	ws := newTestWithdrawalService(t)
	registerFindDocs(repository.Transactions, []types.Transaction{
		withdrawal(4000, types.TransactionStatusPending, 10*time.Minute),
		withdrawal(4000, types.TransactionStatusPending, 5*time.Minute),
	})

	// two unsettled requests already reserve 8000 of today's quota
	decision, err := ws.CheckLimit("user-1", 3000)
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "daily")
}

func TestCheckLimitFailsClosedOnStoreOutage(t *testing.T) {
	ws := newTestWithdrawalService(t)
	registerFindError(repository.Transactions)

	_, err := ws.CheckLimit("user-1", 100)
	assert.Error(t, err)
}

func TestCheckLimitRejectsNonPositiveAmount(t *testing.T) {
	ws := newTestWithdrawalService(t)
	_, err := ws.CheckLimit("user-1", 0)
	assert.Equal(t, types.ErrBadRequest, err)
}

func TestRequestWithdrawalWritesPendingTransaction(t *testing.T) {
	ws := newTestWithdrawalService(t)
	registerFindDocs(repository.Transactions, []types.Transaction{})

	saved, _ := httpmock.NewJsonResponder(201, types.OK{IsOK: true})
	httpmock.RegisterResponder("PUT", `=~^`+testCouchURL+`/transactions/.*`, saved)

	tx, decision, err := ws.RequestWithdrawal("user-1", 1500, "0xabc")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, decision.Allowed)
	assert.Equal(t, types.TransactionStatusPending, tx.Status)
	assert.Equal(t, types.TransactionTypeWithdrawal, tx.Type)
	assert.Equal(t, 1500.0, tx.AmountUSD)
	assert.NotEmpty(t, tx.TransactionID)
}

func TestRequestWithdrawalDeniedWritesNothing(t *testing.T) {
	ws := newTestWithdrawalService(t)
	registerFindDocs(repository.Transactions, []types.Transaction{
		withdrawal(9000, types.TransactionStatusCompleted, time.Hour),
	})

	tx, decision, err := ws.RequestWithdrawal("user-1", 2000, "0xabc")
	if err != nil {
		t.Fatal(err)
	}
	assert.Nil(t, tx)
	assert.False(t, decision.Allowed)
	// no PUT responder registered: a write attempt would have errored
}
