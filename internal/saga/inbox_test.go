package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawEnvelope(t *testing.T, et EventType, sagaID string) []byte {
	t.Helper()
	env, err := NewEnvelope(et, sagaID, "test", map[string]string{"saga_id": sagaID})
	require.NoError(t, err)
	raw, err := env.Marshal()
	require.NoError(t, err)
	return raw
}

func TestInboxSkipsRedeliveredEvent(t *testing.T) {
	calls := 0
	in := &Inbox{
		Registry: NewRegistry("orders").Register(EventPaymentProcessed, func(context.Context, Envelope) error {
			calls++
			return nil
		}),
		Dedup: NewMemoryDedup(),
	}
	raw := rawEnvelope(t, EventPaymentProcessed, "s1")

	for i := 0; i < 3; i++ {
		require.NoError(t, in.Handle(context.Background(), raw))
	}
	assert.Equal(t, 1, calls)
}

func TestInboxReleasesClaimOnInfrastructureError(t *testing.T) {
	fail := true
	calls := 0
	in := &Inbox{
		Registry: NewRegistry("orders").Register(EventPaymentProcessed, func(context.Context, Envelope) error {
			calls++
			if fail {
				return errors.New("connection refused")
			}
			return nil
		}),
		Dedup: NewMemoryDedup(),
	}
	raw := rawEnvelope(t, EventPaymentProcessed, "s1")

	require.Error(t, in.Handle(context.Background(), raw))
	fail = false
	require.NoError(t, in.Handle(context.Background(), raw))
	assert.Equal(t, 2, calls)
}

func TestInboxDeadLettersPermanentFailures(t *testing.T) {
	bus := NewBus()
	in := &Inbox{
		Registry: NewRegistry("refund").
			Register(EventOrderCreationFailed, func(context.Context, Envelope) error {
				return ErrSagaInconsistent
			}).
			Register(EventOrderCreated, func(context.Context, Envelope) error {
				panic("boom")
			}),
		Dedup:      NewMemoryDedup(),
		DeadLetter: bus,
	}
	ctx := context.Background()

	require.NoError(t, in.Handle(ctx, rawEnvelope(t, EventOrderCreationFailed, "s1")))
	require.NoError(t, in.Handle(ctx, rawEnvelope(t, EventOrderCreated, "s1")))
	require.NoError(t, in.Handle(ctx, rawEnvelope(t, EventPaymentFailed, "s1")))
	require.NoError(t, in.Handle(ctx, []byte("garbage")))

	parked := bus.Parked()
	require.Len(t, parked, 4)
	assert.Contains(t, parked[0].Reason, "saga inconsistency")
	assert.Contains(t, parked[1].Reason, "boom")
	assert.Contains(t, parked[2].Reason, "no handler")
	assert.Contains(t, parked[3].Reason, "malformed")
}

func TestInboxReportsInFlightClaim(t *testing.T) {
	dedup := NewMemoryDedup()
	in := &Inbox{
		Registry: NewRegistry("payment").Register(EventCheckoutInitiated, func(context.Context, Envelope) error { return nil }),
		Dedup:    dedup,
		Timeout:  time.Second,
	}
	raw := rawEnvelope(t, EventCheckoutInitiated, "s1")
	env, _ := Parse(raw)
	_, err := dedup.Claim(context.Background(), DedupKey("payment", env), time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, in.Handle(context.Background(), raw), ErrInFlight)
}

func TestInboxAppliesHandlerTimeout(t *testing.T) {
	in := &Inbox{
		Registry: NewRegistry("wallet").Register(EventRefundRequested, func(ctx context.Context, _ Envelope) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		Timeout: 10 * time.Millisecond,
	}
	err := in.Handle(context.Background(), rawEnvelope(t, EventRefundRequested, "s1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
