package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

// Step is the order-creation participant of the checkout saga.
type Step struct {
	Service   *Service
	Publisher saga.Publisher
	Producer  string
	Topic     string
}

func (s *Step) Registry() *saga.Registry {
	return saga.NewRegistry("orders").
		Register(saga.EventCheckoutInitiated, s.HandleCheckoutInitiated).
		Register(saga.EventPaymentProcessed, s.HandlePaymentProcessed).
		Register(saga.EventPaymentFailed, s.HandlePaymentFailed).
		Ignore(
			saga.EventOrderCreated, saga.EventOrderCreationFailed,
			saga.EventRefundCompleted, saga.EventRefundFailed,
		)
}

func (s *Step) HandleCheckoutInitiated(ctx context.Context, env saga.Envelope) error {
	ev, err := saga.Decode[saga.CheckoutInitiated](env)
	if err != nil {
		return err
	}
	ev.SagaID = env.SagaID
	return s.Service.RecordCheckout(ctx, ev)
}

func (s *Step) HandlePaymentProcessed(ctx context.Context, env saga.Envelope) error {
	ev, err := saga.Decode[saga.PaymentProcessed](env)
	if err != nil {
		return err
	}
	ev.SagaID = env.SagaID

	o, err := s.Service.ConfirmPayment(ctx, ev)
	switch {
	case err == nil:
		return saga.Emit(ctx, s.Publisher, s.topic(), saga.EventOrderCreated, env.SagaID, s.Producer,
			saga.OrderCreated{SagaID: env.SagaID, OrderID: o.ID, UserID: o.UserID, TotalAmount: o.Total})
	case IsCreationFailure(err):
		if ferr := s.Service.MarkFailed(ctx, env.SagaID); ferr != nil {
			return ferr
		}
		return saga.Emit(ctx, s.Publisher, s.topic(), saga.EventOrderCreationFailed, env.SagaID, s.Producer,
			saga.OrderCreationFailed{SagaID: env.SagaID, Reason: err.Error()})
	default:
		return fmt.Errorf("create order for saga %s: %w", env.SagaID, err)
	}
}

// HandlePaymentFailed fails an order placed directly through the API while
// its payment was pending. No order is ever created here.
func (s *Step) HandlePaymentFailed(ctx context.Context, env saga.Envelope) error {
	return s.Service.MarkFailed(ctx, env.SagaID)
}

func (s *Step) topic() string {
	if s.Topic == "" {
		return saga.TopicCheckoutEvents
	}
	return s.Topic
}
