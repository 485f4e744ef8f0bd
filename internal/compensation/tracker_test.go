package compensation

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-saga/internal/logx"
	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

func env(t *testing.T, typ saga.EventType, sagaID string, payload any) saga.Envelope {
	t.Helper()
	e, err := saga.NewEnvelope(typ, sagaID, "test", payload)
	require.NoError(t, err)
	return e
}

func paid(t *testing.T, sagaID string) saga.Envelope {
	return env(t, saga.EventPaymentProcessed, sagaID, saga.PaymentProcessed{
		SagaID: sagaID, TransactionID: "tx-" + sagaID, UserID: "u1", Amount: decimal.RequireFromString("100.00"),
	})
}

func newTracker() (*Tracker, *saga.Bus, *MemoryStore) {
	bus := saga.NewBus()
	store := NewMemoryStore()
	return &Tracker{Store: store, Publisher: bus, Producer: "compensation"}, bus, store
}

func TestOrderCreationFailedRequestsRefund(t *testing.T) {
	tr, bus, store := newTracker()
	r := tr.Registry()
	ctx := context.Background()

	require.NoError(t, r.Deliver(ctx, paid(t, "s1")))
	require.NoError(t, r.Deliver(ctx, env(t, saga.EventOrderCreationFailed, "s1",
		saga.OrderCreationFailed{SagaID: "s1", Reason: "db down"})))

	pubs := bus.Published()
	require.Len(t, pubs, 1)
	assert.Equal(t, saga.TopicRefundCommands, pubs[0].Topic)
	cmd, err := saga.Decode[saga.RefundRequested](pubs[0].Envelope)
	require.NoError(t, err)
	assert.Equal(t, "s1", cmd.SagaID)
	assert.Equal(t, "u1", cmd.UserID)
	assert.True(t, cmd.Amount.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, "db down", cmd.Reason)

	rec, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, StateCompensating, rec.State)

	require.NoError(t, r.Deliver(ctx, env(t, saga.EventRefundCompleted, "s1", saga.RefundOutcome{SagaID: "s1"})))
	rec, _ = store.Get(ctx, "s1")
	assert.Equal(t, StateCompensated, rec.State)
	assert.True(t, rec.State.Terminal())

	// late redelivery after the saga closed
	require.NoError(t, r.Deliver(ctx, env(t, saga.EventOrderCreationFailed, "s1", saga.OrderCreationFailed{SagaID: "s1"})))
	assert.Len(t, bus.Published(), 1)
}

func TestOrderOutcomeWithoutPaymentIsInconsistent(t *testing.T) {
	tr, bus, _ := newTracker()
	ctx := context.Background()

	err := tr.HandleOrderCreationFailed(ctx, env(t, saga.EventOrderCreationFailed, "ghost", saga.OrderCreationFailed{SagaID: "ghost"}))
	assert.ErrorIs(t, err, saga.ErrSagaInconsistent)
	assert.True(t, saga.IsPermanent(err))

	err = tr.HandleOrderCreated(ctx, env(t, saga.EventOrderCreated, "ghost", saga.OrderCreated{SagaID: "ghost"}))
	assert.ErrorIs(t, err, saga.ErrSagaInconsistent)
	assert.Empty(t, bus.Published())
}

func TestOrderOutcomeAfterPaymentFailedIsInconsistent(t *testing.T) {
	tr, _, _ := newTracker()
	ctx := context.Background()
	require.NoError(t, tr.HandlePaymentFailed(ctx, env(t, saga.EventPaymentFailed, "s2", saga.PaymentFailed{SagaID: "s2", Reason: "declined"})))

	err := tr.HandleOrderCreated(ctx, env(t, saga.EventOrderCreated, "s2", saga.OrderCreated{SagaID: "s2"}))
	assert.ErrorIs(t, err, saga.ErrSagaInconsistent)
}

func TestOrderCreatedClosesSaga(t *testing.T) {
	tr, bus, store := newTracker()
	ctx := context.Background()
	require.NoError(t, tr.HandlePaymentProcessed(ctx, paid(t, "s3")))
	require.NoError(t, tr.HandleOrderCreated(ctx, env(t, saga.EventOrderCreated, "s3", saga.OrderCreated{SagaID: "s3"})))
	require.NoError(t, tr.HandlePaymentProcessed(ctx, paid(t, "s3")))

	rec, err := store.Get(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, StateOrderCreated, rec.State)
	assert.Empty(t, bus.Published())
}

func TestRefundOutcomeForUntrackedSagaIsAcked(t *testing.T) {
	tr, _, _ := newTracker()
	err := tr.HandleRefundOutcome(context.Background(), env(t, saga.EventRefundFailed, "api-refund", saga.RefundOutcome{SagaID: "api-refund"}))
	assert.NoError(t, err)
}

func TestCompensatingRedeliveryResendsCommand(t *testing.T) {
	tr, bus, _ := newTracker()
	ctx := context.Background()
	failed := env(t, saga.EventOrderCreationFailed, "s4", saga.OrderCreationFailed{SagaID: "s4", Reason: "x"})

	require.NoError(t, tr.HandlePaymentProcessed(ctx, paid(t, "s4")))
	require.NoError(t, tr.HandleOrderCreationFailed(ctx, failed))
	require.NoError(t, tr.HandleOrderCreationFailed(ctx, failed))

	cmds := bus.Events("s4", saga.EventRefundRequested)
	require.Len(t, cmds, 2)
	assert.Equal(t, cmds[0].EventID, cmds[1].EventID)
	assert.Equal(t, RefundCommandID("s4"), cmds[0].EventID)
	assert.NotEqual(t, RefundCommandID("s5"), cmds[0].EventID)
}

func TestLaterRefundSettlesFailedCompensation(t *testing.T) {
	var logs bytes.Buffer
	tr, _, store := newTracker()
	tr.Log = logx.NewWriter(&logs, "compensation", "info")
	r := tr.Registry()
	ctx := context.Background()

	require.NoError(t, r.Deliver(ctx, paid(t, "s7")))
	require.NoError(t, r.Deliver(ctx, env(t, saga.EventOrderCreationFailed, "s7", saga.OrderCreationFailed{SagaID: "s7", Reason: "x"})))
	require.NoError(t, r.Deliver(ctx, env(t, saga.EventRefundFailed, "s7", saga.RefundOutcome{SagaID: "s7"})))

	rec, err := store.Get(ctx, "s7")
	require.NoError(t, err)
	assert.Equal(t, StateCompensationFailed, rec.State)

	require.NoError(t, r.Deliver(ctx, env(t, saga.EventRefundCompleted, "s7", saga.RefundOutcome{SagaID: "s7"})))
	rec, err = store.Get(ctx, "s7")
	require.NoError(t, err)
	assert.Equal(t, StateCompensated, rec.State)

	// a stale failure cannot reopen it
	require.NoError(t, r.Deliver(ctx, env(t, saga.EventRefundFailed, "s7", saga.RefundOutcome{SagaID: "s7"})))
	rec, _ = store.Get(ctx, "s7")
	assert.Equal(t, StateCompensated, rec.State)

	assert.Equal(t, 1, strings.Count(logs.String(), "manual action required"))
	assert.Contains(t, logs.String(), "settled by a later refund")
}

func TestCompensationTransitions(t *testing.T) {
	assert.True(t, CanTransition(StateCompensationFailed, StateCompensated))
	assert.False(t, CanTransition(StateCompensated, StateCompensationFailed))
	assert.False(t, CanTransition(StateOrderCreated, StateCompensating))
}
