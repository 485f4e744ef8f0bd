package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d = decimal.RequireFromString

func TestDebitMoreThanBalance(t *testing.T) {
	store := NewMemoryStore()
	l := NewLedger(store)
	ctx := context.Background()

	_, err := l.Credit(ctx, "u1", d("20"), "")
	require.NoError(t, err)

	tx, err := l.Debit(ctx, "u1", d("50"), "order-1")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, TxFailed, tx.Status)
	assert.True(t, tx.NewBalance.Equal(d("20")))

	w, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(d("20")))

	hist, err := l.History(ctx, "u1", 0)
	require.NoError(t, err)
	failed := 0
	for _, h := range hist {
		if h.Status == TxFailed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestCreditMessageAndBalance(t *testing.T) {
	l := NewLedger(NewMemoryStore())
	tx, err := l.Credit(context.Background(), "u1", d("12.50"), "")
	require.NoError(t, err)
	assert.Equal(t, TxSuccess, tx.Status)
	assert.Equal(t, "CREDIT of 12.5 SUCCESS. New balance: 12.5", tx.Message)
}

func TestBalanceCreatesWalletLazily(t *testing.T) {
	l := NewLedger(NewMemoryStore())
	w, err := l.Balance(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Equal(t, "new-user", w.UserID)
	assert.True(t, w.Balance.IsZero())
}

func TestInvalidAmountRecordsNothing(t *testing.T) {
	l := NewLedger(NewMemoryStore())
	ctx := context.Background()

	_, err := l.Credit(ctx, "u1", d("0"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.Debit(ctx, "u1", d("-5"), "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.Credit(ctx, "", d("5"), "")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	hist, err := l.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestCreditWithSameReferenceIsApplyOnce(t *testing.T) {
	l := NewLedger(NewMemoryStore())
	ctx := context.Background()

	first, err := l.Credit(ctx, "u1", d("30"), "saga-1")
	require.NoError(t, err)
	second, err := l.Credit(ctx, "u1", d("30"), "saga-1")
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	w, _ := l.Balance(ctx, "u1")
	assert.True(t, w.Balance.Equal(d("30")))
}

func TestHistoryIsNewestFirst(t *testing.T) {
	l := NewLedger(NewMemoryStore())
	ctx := context.Background()
	for _, amt := range []string{"1", "2", "3"} {
		_, err := l.Credit(ctx, "u1", d(amt), "")
		require.NoError(t, err)
	}
	hist, err := l.History(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].Amount.Equal(d("3")))
	assert.True(t, hist[1].Amount.Equal(d("2")))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	l := NewLedger(NewMemoryStore())
	ctx := context.Background()
	_, err := l.Credit(ctx, "u1", d("100"), "")
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Debit(ctx, "u1", d("7"), ""); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	w, err := l.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 14, ok)
	assert.True(t, w.Balance.Equal(d("2")))
}

func TestBalanceNeverNegative(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	type op struct {
		Credit bool
		Cents  int64
	}
	genOp := gopter.CombineGens(gen.Bool(), gen.Int64Range(1, 10_000)).Map(func(v []interface{}) op {
		return op{Credit: v[0].(bool), Cents: v[1].(int64)}
	})

	properties.Property("balance stays >= 0 and rejected debits change nothing", prop.ForAll(
		func(ops []op) bool {
			l := NewLedger(NewMemoryStore())
			ctx := context.Background()
			for _, o := range ops {
				amount := decimal.New(o.Cents, -2)
				before, _ := l.Balance(ctx, "u")
				if o.Credit {
					if _, err := l.Credit(ctx, "u", amount, ""); err != nil {
						return false
					}
				} else if _, err := l.Debit(ctx, "u", amount, ""); err != nil {
					after, _ := l.Balance(ctx, "u")
					if !after.Balance.Equal(before.Balance) {
						return false
					}
				}
				w, _ := l.Balance(ctx, "u")
				if w.Balance.IsNegative() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genOp),
	))

	properties.TestingRun(t)
}
