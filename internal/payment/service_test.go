package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDecider struct {
	Decider
	calls int
}

func (c *countingDecider) Decide(ctx context.Context, req Request) (Decision, error) {
	c.calls++
	return c.Decider.Decide(ctx, req)
}

func newTestService() (*Service, *MemoryStore, *countingDecider) {
	store := NewMemoryStore()
	d := &countingDecider{Decider: NewAmountTrigger(decimal.RequireFromString("13.00"))}
	return NewService(store, d), store, d
}

func TestProcessPaymentFailAmountIsDeclined(t *testing.T) {
	svc, _, _ := newTestService()

	tx, err := svc.ProcessPayment(context.Background(), Request{SagaID: "s1", UserID: "u1", Amount: decimal.RequireFromString("13")})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, tx.Status)
	assert.Equal(t, simulatedDecline, tx.Message)
	assert.Equal(t, DefaultCurrency, tx.Currency)
	assert.Equal(t, DefaultMethod, tx.Method)
}

func TestProcessPaymentApprovesOtherAmounts(t *testing.T) {
	svc, _, _ := newTestService()

	tx, err := svc.ProcessPayment(context.Background(), Request{SagaID: "s1", UserID: "u1", Amount: decimal.RequireFromString("100.00")})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, tx.Status)
	assert.NotEmpty(t, tx.TransactionID)
}

func TestProcessPaymentIsIdempotentPerSaga(t *testing.T) {
	svc, store, d := newTestService()
	ctx := context.Background()
	req := Request{SagaID: "s1", UserID: "u1", Amount: decimal.RequireFromString("42.50")}

	first, err := svc.ProcessPayment(ctx, req)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := svc.ProcessPayment(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.TransactionID, again.TransactionID)
	}
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, 1, d.calls)
}

func TestProcessPaymentValidation(t *testing.T) {
	svc, store, _ := newTestService()

	_, err := svc.ProcessPayment(context.Background(), Request{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.ProcessPayment(context.Background(), Request{SagaID: "s1", Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Zero(t, store.Count())
}

type brokenDecider struct{}

func (brokenDecider) Decide(context.Context, Request) (Decision, error) {
	return Decision{}, errors.New("processor timeout")
}

func TestProcessPaymentDeciderErrorRecordsNothing(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, brokenDecider{})

	_, err := svc.ProcessPayment(context.Background(), Request{SagaID: "s1", Amount: decimal.NewFromInt(5)})
	require.Error(t, err)
	assert.Zero(t, store.Count())
}
