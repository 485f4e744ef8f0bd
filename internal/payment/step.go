package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

// Step is the payment participant of the checkout saga.
type Step struct {
	Service   *Service
	Publisher saga.Publisher
	Producer  string
	Topic     string
}

// Registry wires the step's handlers for the shared checkout topic.
func (s *Step) Registry() *saga.Registry {
	return saga.NewRegistry("payment").
		Register(saga.EventCheckoutInitiated, s.HandleCheckoutInitiated).
		Ignore(
			saga.EventPaymentProcessed, saga.EventPaymentFailed,
			saga.EventOrderCreated, saga.EventOrderCreationFailed,
			saga.EventRefundCompleted, saga.EventRefundFailed,
		)
}

func (s *Step) HandleCheckoutInitiated(ctx context.Context, env saga.Envelope) error {
	ev, err := saga.Decode[saga.CheckoutInitiated](env)
	if err != nil {
		return err
	}
	total := ev.TotalAmount
	if total.IsZero() {
		total = ev.Amounts.Total
	}
	tx, err := s.Service.ProcessPayment(ctx, Request{
		SagaID:   env.SagaID,
		UserID:   ev.UserID,
		Amount:   total,
		Currency: ev.Currency,
	})
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return fmt.Errorf("%w: %v", saga.ErrMalformed, err)
	case err != nil:
		return fmt.Errorf("process payment for saga %s: %w", env.SagaID, err)
	}
	return s.publishOutcome(ctx, tx)
}

// publishOutcome derives the event from the stored transaction, so a
// redelivery re-announces the same outcome.
func (s *Step) publishOutcome(ctx context.Context, tx Transaction) error {
	if tx.Succeeded() {
		return saga.Emit(ctx, s.Publisher, s.topic(), saga.EventPaymentProcessed, tx.SagaID, s.Producer,
			saga.PaymentProcessed{SagaID: tx.SagaID, TransactionID: tx.TransactionID, UserID: tx.UserID, Amount: tx.Amount})
	}
	return saga.Emit(ctx, s.Publisher, s.topic(), saga.EventPaymentFailed, tx.SagaID, s.Producer,
		saga.PaymentFailed{SagaID: tx.SagaID, Reason: tx.Message})
}

func (s *Step) topic() string {
	if s.Topic == "" {
		return saga.TopicCheckoutEvents
	}
	return s.Topic
}
