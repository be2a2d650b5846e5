package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

func rupees(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newTestService(t *testing.T) Service {
	t.Helper()
	var mu sync.Mutex
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := NewService(NewMemoryRepository(nil), nil, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}))
	require.NoError(t, err)
	return svc
}

func TestCreditDebitScenario(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	res, err := svc.Credit(ctx, CreditInput{UserID: user, Amount: rupees(500), Method: "UPI"})
	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.Equal(rupees(500)))
	assert.Equal(t, enums.TransactionTypeCredit, res.Transaction.Type)
	assert.True(t, res.Transaction.PreviousBalance.IsZero())
	assert.True(t, res.Transaction.CurrentBalance.Equal(rupees(500)))
	assert.Equal(t, "Added to wallet via UPI", res.Transaction.Description)
	require.NotNil(t, res.Transaction.Reference)
	assert.Contains(t, *res.Transaction.Reference, "ADD_")

	_, err = svc.Debit(ctx, DebitInput{UserID: user, Amount: rupees(600), Description: "order"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientBalance))
	w, err := svc.Wallet(ctx, user)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(rupees(500)), "balance must be unchanged after a declined debit")

	res, err = svc.Debit(ctx, DebitInput{UserID: user, Amount: rupees(500), Description: "order"})
	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.IsZero())
	assert.True(t, res.Transaction.PreviousBalance.Equal(rupees(500)))
	assert.True(t, res.Transaction.CurrentBalance.IsZero())
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	for _, amount := range []decimal.Decimal{decimal.Zero, rupees(-5)} {
		_, err := svc.Credit(ctx, CreditInput{UserID: user, Amount: amount, Method: "UPI"})
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidAmount), "credit %s: %v", amount, err)
		_, err = svc.Debit(ctx, DebitInput{UserID: user, Amount: amount})
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidAmount), "debit %s: %v", amount, err)
	}

	history, err := svc.History(ctx, user, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, history.Total)
}

func TestWalletIsLazilyCreatedInINR(t *testing.T) {
	svc := newTestService(t)
	user := uuid.New()

	w, err := svc.Wallet(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, user, w.UserID)
	assert.Equal(t, enums.CurrencyINR, w.Currency)
	assert.True(t, w.Balance.IsZero())

	again, err := svc.Wallet(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)
}

func TestRefundTagsOrder(t *testing.T) {
	svc := newTestService(t)
	user, order := uuid.New(), uuid.New()

	res, err := svc.Refund(context.Background(), RefundInput{UserID: user, Amount: rupees(250), OrderID: order, Reason: "Order cancelled"})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionTypeCredit, res.Transaction.Type)
	assert.Equal(t, "Refund for order "+order.String()+": Order cancelled", res.Transaction.Description)
	require.NotNil(t, res.Transaction.Reference)
	assert.Equal(t, "REFUND_"+order.String(), *res.Transaction.Reference)
	require.NotNil(t, res.Transaction.OrderID)
	assert.Equal(t, order, *res.Transaction.OrderID)
	assert.True(t, res.Wallet.Balance.Equal(rupees(250)))
}

func TestProcessPayment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user, order := uuid.New(), uuid.New()

	declined, err := svc.ProcessPayment(ctx, user, rupees(100), order)
	require.NoError(t, err, "a declined payment is a result")
	assert.False(t, declined.Success)
	assert.Equal(t, "Insufficient wallet balance", declined.Error)
	assert.Equal(t, pkgerrors.CodeInsufficientBalance, declined.Code)

	_, err = svc.Credit(ctx, CreditInput{UserID: user, Amount: rupees(300), Method: "CARD"})
	require.NoError(t, err)

	paid, err := svc.ProcessPayment(ctx, user, rupees(100), order)
	require.NoError(t, err)
	assert.True(t, paid.Success)
	require.NotNil(t, paid.TransactionID)
	require.NotNil(t, paid.RemainingBalance)
	assert.True(t, paid.RemainingBalance.Equal(rupees(200)))

	history, err := svc.History(ctx, user, 1, 0)
	require.NoError(t, err)
	require.Len(t, history.Transactions, 1)
	assert.Equal(t, *paid.TransactionID, history.Transactions[0].ID)
	assert.Equal(t, "Payment for order "+order.String(), history.Transactions[0].Description)
}

type failingRepo struct {
	Repository
}

func (failingRepo) FindWallet(context.Context, uuid.UUID) (*models.Wallet, error) {
	return nil, errors.New("store offline")
}

func TestProcessPaymentPropagatesInfrastructureErrors(t *testing.T) {
	svc, err := NewService(failingRepo{}, nil)
	require.NoError(t, err)

	_, err = svc.ProcessPayment(context.Background(), uuid.New(), rupees(10), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestHistoryNewestFirstWithPaging(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	for i := int64(1); i <= 5; i++ {
		_, err := svc.Credit(ctx, CreditInput{UserID: user, Amount: rupees(i * 10), Method: "UPI"})
		require.NoError(t, err)
	}

	first, err := svc.History(ctx, user, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Total)
	assert.True(t, first.HasMore)
	require.Len(t, first.Transactions, 2)
	assert.True(t, first.Transactions[0].Amount.Equal(rupees(50)))
	assert.True(t, first.Transactions[1].Amount.Equal(rupees(40)))

	last, err := svc.History(ctx, user, 2, 4)
	require.NoError(t, err)
	assert.False(t, last.HasMore)
	require.Len(t, last.Transactions, 1)
	assert.True(t, last.Transactions[0].Amount.Equal(rupees(10)))

	beyond, err := svc.History(ctx, user, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, beyond.Transactions)
}

func TestStatsRecomputedFromLog(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Credit(ctx, CreditInput{UserID: user, Amount: rupees(1000), Method: "UPI"})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, DebitInput{UserID: user, Amount: rupees(300), Description: "ride"})
	require.NoError(t, err)
	_, err = svc.Debit(ctx, DebitInput{UserID: user, Amount: rupees(200), Description: "food"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, user)
	require.NoError(t, err)
	assert.True(t, stats.Balance.Equal(rupees(500)))
	assert.True(t, stats.TotalAdded.Equal(rupees(1000)))
	assert.True(t, stats.TotalSpent.Equal(rupees(500)))
	assert.Equal(t, 3, stats.TransactionCount)
	require.NotNil(t, stats.LastTransaction)
	assert.Equal(t, "food", stats.LastTransaction.Description)
}

// The balance always equals credits minus debits and consecutive
// transactions chain previous/current balances.
func TestLedgerInvariantsUnderConcurrency(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.Credit(ctx, CreditInput{UserID: user, Amount: rupees(100), Method: "UPI"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Debit(ctx, DebitInput{UserID: user, Amount: rupees(7), Description: "debit"})
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Credit(ctx, CreditInput{UserID: user, Amount: rupees(3), Method: "UPI"})
		}()
	}
	wg.Wait()

	history, err := svc.History(ctx, user, 1000, 0)
	require.NoError(t, err)
	txns := history.Transactions
	// History is newest first; walk it oldest first.
	sum := decimal.Zero
	for i := len(txns) - 1; i >= 0; i-- {
		txn := txns[i]
		if txn.Type == enums.TransactionTypeCredit {
			sum = sum.Add(txn.Amount)
			assert.True(t, txn.CurrentBalance.Equal(txn.PreviousBalance.Add(txn.Amount)))
		} else {
			sum = sum.Sub(txn.Amount)
			assert.True(t, txn.CurrentBalance.Equal(txn.PreviousBalance.Sub(txn.Amount)))
		}
		assert.False(t, txn.CurrentBalance.IsNegative())
		if i > 0 {
			assert.True(t, txn.CurrentBalance.Equal(txns[i-1].PreviousBalance), "chain broken at %d", i)
		}
	}

	w, err := svc.Wallet(ctx, user)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(sum), "balance %s, log sum %s", w.Balance, sum)
}

type failingCommitRepo struct {
	Repository
	fail bool
}

func (r *failingCommitRepo) Commit(ctx context.Context, w models.Wallet, txn models.Transaction) error {
	if r.fail {
		return errors.New("store unavailable")
	}
	return r.Repository.Commit(ctx, w, txn)
}

func TestFailedCommitLeavesLedgerUntouched(t *testing.T) {
	repo := &failingCommitRepo{Repository: NewMemoryRepository(nil)}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)
	ctx := context.Background()
	user := uuid.New()

	_, err = svc.Credit(ctx, CreditInput{UserID: user, Amount: rupees(500), Method: "UPI"})
	require.NoError(t, err)

	repo.fail = true
	_, err = svc.Credit(ctx, CreditInput{UserID: user, Amount: rupees(100), Method: "UPI"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))

	repo.fail = false
	stats, err := svc.Stats(ctx, user)
	require.NoError(t, err)
	assert.True(t, stats.Balance.Equal(rupees(500)), stats.Balance.String())
	assert.True(t, stats.TotalAdded.Equal(rupees(500)), stats.TotalAdded.String())
	assert.Equal(t, 1, stats.TransactionCount)
}
