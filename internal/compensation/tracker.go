package compensation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

// Tracker follows each saga on the checkout topic and turns a failed order
// after a successful payment into a refund command.
type Tracker struct {
	Store       Store
	Publisher   saga.Publisher
	Producer    string
	RefundTopic string
	Now         func() time.Time
	Log         *slog.Logger
}

func (t *Tracker) Registry() *saga.Registry {
	return saga.NewRegistry("compensation").
		Register(saga.EventPaymentProcessed, t.HandlePaymentProcessed).
		Register(saga.EventPaymentFailed, t.HandlePaymentFailed).
		Register(saga.EventOrderCreated, t.HandleOrderCreated).
		Register(saga.EventOrderCreationFailed, t.HandleOrderCreationFailed).
		Register(saga.EventRefundCompleted, t.HandleRefundOutcome).
		Register(saga.EventRefundFailed, t.HandleRefundOutcome).
		Ignore(saga.EventCheckoutInitiated)
}

func (t *Tracker) HandlePaymentProcessed(ctx context.Context, env saga.Envelope) error {
	ev, err := saga.Decode[saga.PaymentProcessed](env)
	if err != nil {
		return err
	}
	if _, err := t.Store.Get(ctx, env.SagaID); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return t.Store.Put(ctx, Record{
		SagaID:               env.SagaID,
		UserID:               ev.UserID,
		Amount:               ev.Amount,
		PaymentTransactionID: ev.TransactionID,
		State:                StatePaid,
		UpdatedAt:            t.now(),
	})
}

func (t *Tracker) HandlePaymentFailed(ctx context.Context, env saga.Envelope) error {
	ev, err := saga.Decode[saga.PaymentFailed](env)
	if err != nil {
		return err
	}
	if _, err := t.Store.Get(ctx, env.SagaID); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return t.Store.Put(ctx, Record{SagaID: env.SagaID, State: StatePaymentFailed, Reason: ev.Reason, UpdatedAt: t.now()})
}

func (t *Tracker) HandleOrderCreated(ctx context.Context, env saga.Envelope) error {
	rec, err := t.paid(ctx, env)
	if err != nil {
		return err
	}
	_, err = t.advance(ctx, rec, StateOrderCreated, "")
	return err
}

// HandleOrderCreationFailed requests the refund. While the record is
// COMPENSATING a redelivery re-sends the same command under the same event
// id.
func (t *Tracker) HandleOrderCreationFailed(ctx context.Context, env saga.Envelope) error {
	ev, err := saga.Decode[saga.OrderCreationFailed](env)
	if err != nil {
		return err
	}
	rec, err := t.paid(ctx, env)
	if err != nil {
		return err
	}
	rec, err = t.advance(ctx, rec, StateCompensating, ev.Reason)
	if err != nil {
		return err
	}
	if rec.State != StateCompensating {
		return nil
	}
	cmd, err := saga.NewEnvelope(saga.EventRefundRequested, rec.SagaID, t.Producer,
		saga.RefundRequested{SagaID: rec.SagaID, UserID: rec.UserID, Amount: rec.Amount, Reason: ev.Reason})
	if err != nil {
		return err
	}
	cmd.EventID = RefundCommandID(rec.SagaID)
	return t.Publisher.Publish(ctx, t.refundTopic(), cmd)
}

// RefundCommandID is the event id of the refund command for sagaID. Every
// re-send carries the same id, so the refund step settles it once.
func RefundCommandID(sagaID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("refund-command:"+sagaID)).String()
}

func (t *Tracker) HandleRefundOutcome(ctx context.Context, env saga.Envelope) error {
	rec, err := t.Store.Get(ctx, env.SagaID)
	if errors.Is(err, ErrNotFound) {
		// refunds requested over HTTP have no saga record
		t.logger().Info("refund outcome for untracked saga", "saga_id", env.SagaID, "event", env.Type)
		return nil
	}
	if err != nil {
		return err
	}
	to := StateCompensated
	if env.Type == saga.EventRefundFailed {
		to = StateCompensationFailed
	}
	prev := rec.State
	rec, err = t.advance(ctx, rec, to, rec.Reason)
	if err != nil {
		return err
	}
	switch {
	case rec.State == prev:
	case rec.State == StateCompensationFailed:
		t.logger().Error("compensation failed, manual action required",
			"saga_id", rec.SagaID, "user_id", rec.UserID, "amount", rec.Amount.String())
	case prev == StateCompensationFailed:
		t.logger().Info("failed compensation settled by a later refund", "saga_id", rec.SagaID)
	}
	return nil
}

func (t *Tracker) Get(ctx context.Context, sagaID string) (Record, error) {
	return t.Store.Get(ctx, sagaID)
}

// paid loads the record an order outcome refers to. An order outcome for a
// saga with no recorded payment can never be reconciled.
func (t *Tracker) paid(ctx context.Context, env saga.Envelope) (Record, error) {
	rec, err := t.Store.Get(ctx, env.SagaID)
	if errors.Is(err, ErrNotFound) {
		return Record{}, fmt.Errorf("%w: %s for saga %s without a recorded payment", saga.ErrSagaInconsistent, env.Type, env.SagaID)
	}
	if err != nil {
		return Record{}, err
	}
	if rec.State == StatePaymentFailed {
		return Record{}, fmt.Errorf("%w: %s for saga %s whose payment failed", saga.ErrSagaInconsistent, env.Type, env.SagaID)
	}
	return rec, nil
}

// advance moves rec forward. Replays of the current state or of an earlier
// one leave the record untouched.
func (t *Tracker) advance(ctx context.Context, rec Record, to State, reason string) (Record, error) {
	if rec.State == to {
		return rec, nil
	}
	if !CanTransition(rec.State, to) {
		if rec.State.Terminal() {
			return rec, nil
		}
		return rec, fmt.Errorf("%w: saga %s cannot move from %s to %s", saga.ErrSagaInconsistent, rec.SagaID, rec.State, to)
	}
	rec.State = to
	rec.Reason = reason
	rec.UpdatedAt = t.now()
	if err := t.Store.Put(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (t *Tracker) refundTopic() string {
	if t.RefundTopic == "" {
		return saga.TopicRefundCommands
	}
	return t.RefundTopic
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now().UTC()
}

func (t *Tracker) logger() *slog.Logger {
	if t.Log == nil {
		return slog.Default()
	}
	return t.Log
}
