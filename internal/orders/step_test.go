package orders

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

func envelope(t *testing.T, typ saga.EventType, sagaID string, payload any) saga.Envelope {
	t.Helper()
	env, err := saga.NewEnvelope(typ, sagaID, "test", payload)
	require.NoError(t, err)
	return env
}

func TestStepCreatesOrderAfterPayment(t *testing.T) {
	bus := saga.NewBus()
	store := NewMemoryStore()
	step := &Step{Service: NewService(store), Publisher: bus, Producer: "orders"}
	r := step.Registry()
	ctx := context.Background()

	require.NoError(t, r.Deliver(ctx, envelope(t, saga.EventCheckoutInitiated, "s1", checkout("s1", "100"))))
	assert.Equal(t, 0, store.Count(), "no order before payment")

	require.NoError(t, r.Deliver(ctx, envelope(t, saga.EventPaymentProcessed, "s1",
		saga.PaymentProcessed{SagaID: "s1", TransactionID: "tx1", UserID: "u1", Amount: d("100")})))

	created := bus.Events("s1", saga.EventOrderCreated)
	require.Len(t, created, 1)
	ev, err := saga.Decode[saga.OrderCreated](created[0])
	require.NoError(t, err)
	assert.Equal(t, "s1", ev.OrderID)
	assert.True(t, ev.TotalAmount.Equal(d("100")))
}

func TestStepPublishesCreationFailure(t *testing.T) {
	bus := saga.NewBus()
	step := &Step{Service: NewService(NewMemoryStore()), Publisher: bus, Producer: "orders"}

	require.NoError(t, step.HandlePaymentProcessed(context.Background(), envelope(t, saga.EventPaymentProcessed, "s9",
		saga.PaymentProcessed{SagaID: "s9", TransactionID: "tx9", Amount: d("10")})))

	assert.Empty(t, bus.Events("s9", saga.EventOrderCreated))
	failed := bus.Events("s9", saga.EventOrderCreationFailed)
	require.Len(t, failed, 1)
	ev, err := saga.Decode[saga.OrderCreationFailed](failed[0])
	require.NoError(t, err)
	assert.Contains(t, ev.Reason, "snapshot")
}

func TestStepPaymentFailedNeverCreatesOrder(t *testing.T) {
	bus := saga.NewBus()
	store := NewMemoryStore()
	step := &Step{Service: NewService(store), Publisher: bus, Producer: "orders"}
	r := step.Registry()
	ctx := context.Background()

	require.NoError(t, r.Deliver(ctx, envelope(t, saga.EventCheckoutInitiated, "s2", checkout("s2", "13"))))
	require.NoError(t, r.Deliver(ctx, envelope(t, saga.EventPaymentFailed, "s2", saga.PaymentFailed{SagaID: "s2"})))

	assert.Equal(t, 0, store.Count())
	assert.Empty(t, bus.Published())
}

func TestStepAtMostOneOrderUnderRedelivery(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("redelivered PaymentProcessed yields one order", prop.ForAll(
		func(redeliveries int) bool {
			bus := saga.NewBus()
			store := NewMemoryStore()
			step := &Step{Service: NewService(store), Publisher: bus, Producer: "orders"}
			ctx := context.Background()

			if err := step.HandleCheckoutInitiated(ctx, envelope(t, saga.EventCheckoutInitiated, "s1", checkout("s1", "100"))); err != nil {
				return false
			}
			paid := envelope(t, saga.EventPaymentProcessed, "s1",
				saga.PaymentProcessed{SagaID: "s1", TransactionID: "tx1", Amount: d("100")})
			for i := 0; i <= redeliveries; i++ {
				if err := step.HandlePaymentProcessed(ctx, paid); err != nil {
					return false
				}
			}
			o, err := store.Get(ctx, "s1")
			return err == nil && store.Count() == 1 && o.Status == StatusPendingFulfillment &&
				len(bus.Events("s1", saga.EventOrderCreated)) == redeliveries+1
		},
		gen.IntRange(0, 8),
	))

	properties.TestingRun(t)
}
