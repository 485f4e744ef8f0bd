package refund

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-saga/internal/payment"
	"github.com/ariefcatur/go-checkout-saga/internal/saga"
	"github.com/ariefcatur/go-checkout-saga/internal/wallet"
)

func cmd(sagaID string) Command {
	return Command{SagaID: sagaID, UserID: "u1", Amount: decimal.RequireFromString("100"), Reason: "order creation failed"}
}

type flakyDecider struct{ err error }

func (f flakyDecider) Decide(context.Context, payment.Request) (payment.Decision, error) {
	return payment.Decision{}, f.err
}

func TestGatewayRefundOutcomes(t *testing.T) {
	ctx := context.Background()

	ok := NewService(NewMemoryStore(), GatewaySettler{Decider: payment.Fixed{Approve: true}})
	rf, err := ok.ProcessRefund(ctx, cmd("s1"))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rf.Status)
	assert.NotEmpty(t, rf.TransactionID)
	assert.Equal(t, "gateway", rf.Settlement)

	declined := NewService(NewMemoryStore(), GatewaySettler{Decider: payment.Fixed{Reason: "processor declined"}})
	rf, err = declined.ProcessRefund(ctx, cmd("s2"))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rf.Status)
	assert.Empty(t, rf.TransactionID)
	assert.Equal(t, "processor declined", rf.Message)
}

func TestCompletedRefundIsReturnedUnchanged(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, GatewaySettler{Decider: payment.Fixed{Approve: true}})
	ctx := context.Background()

	first, err := svc.ProcessRefund(ctx, cmd("s1"))
	require.NoError(t, err)
	svc.Settler = GatewaySettler{Decider: flakyDecider{err: errors.New("must not be called")}}
	second, err := svc.ProcessRefund(ctx, cmd("s1"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.Attempts("s1"), 1)
}

func TestFailedRefundMayBeRetried(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, GatewaySettler{Decider: payment.Fixed{Reason: "no"}})
	ctx := context.Background()

	_, err := svc.ProcessRefund(ctx, cmd("s1"))
	require.NoError(t, err)
	svc.Settler = GatewaySettler{Decider: payment.Fixed{Approve: true}}
	rf, err := svc.ProcessRefund(ctx, cmd("s1"))
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, rf.Status)
	assert.Len(t, store.Attempts("s1"), 2)
	got, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, rf.RefundID, got.RefundID)
}

func TestSettlerErrorIsReturned(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, GatewaySettler{Decider: flakyDecider{err: errors.New("timeout")}})
	_, err := svc.ProcessRefund(context.Background(), cmd("s1"))
	require.Error(t, err)
	assert.Empty(t, store.Attempts("s1"))
}

func TestInvalidCommand(t *testing.T) {
	svc := NewService(NewMemoryStore(), GatewaySettler{Decider: payment.Fixed{Approve: true}})
	_, err := svc.ProcessRefund(context.Background(), Command{SagaID: "s1"})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}

func TestWalletSettlementCreditsOnce(t *testing.T) {
	ledger := wallet.NewLedger(wallet.NewMemoryStore())
	store := NewMemoryStore()
	svc := NewService(store, WalletSettler{Crediter: ledger})
	ctx := context.Background()

	rf, err := svc.ProcessRefund(ctx, cmd("s1"))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rf.Status)
	assert.Equal(t, "wallet", rf.Settlement)

	// a second attempt with a fresh store still credits once: the ledger
	// dedups on the saga reference
	again := NewService(NewMemoryStore(), WalletSettler{Crediter: ledger})
	rf2, err := again.ProcessRefund(ctx, cmd("s1"))
	require.NoError(t, err)
	assert.Equal(t, rf.TransactionID, rf2.TransactionID)

	w, err := ledger.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("100")))
}

func TestStepPublishesOutcomeOnCheckoutTopic(t *testing.T) {
	bus := saga.NewBus()
	step := &Step{
		Service:   NewService(NewMemoryStore(), GatewaySettler{Decider: payment.Fixed{Approve: true}}),
		Publisher: bus,
		Producer:  "refund",
	}
	env, err := saga.NewEnvelope(saga.EventRefundRequested, "s1", "compensation", saga.RefundRequested{
		SagaID: "s1", UserID: "u1", Amount: decimal.RequireFromString("100"), Reason: "x",
	})
	require.NoError(t, err)
	require.NoError(t, step.Registry().Deliver(context.Background(), env))

	pubs := bus.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, saga.TopicCheckoutEvents, pubs[0].Topic)
	assert.Equal(t, saga.EventRefundCompleted, pubs[0].Envelope.Type)
	out, err := saga.Decode[saga.RefundOutcome](pubs[0].Envelope)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", out.Status)
	assert.NotEmpty(t, out.RefundID)
}

func TestStepDeadLettersInvalidCommand(t *testing.T) {
	step := &Step{
		Service:   NewService(NewMemoryStore(), GatewaySettler{Decider: payment.Fixed{Approve: true}}),
		Publisher: saga.NewBus(),
	}
	env, err := saga.NewEnvelope(saga.EventRefundRequested, "s1", "compensation", saga.RefundRequested{SagaID: "s1"})
	require.NoError(t, err)
	err = step.HandleRefundRequested(context.Background(), env)
	assert.True(t, saga.IsPermanent(err))
}
