// Package choreography assembles every saga participant on an in-process
// bus. It backs the simulate command and the end-to-end tests.
package choreography

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-checkout-saga/internal/compensation"
	"github.com/ariefcatur/go-checkout-saga/internal/orders"
	"github.com/ariefcatur/go-checkout-saga/internal/payment"
	"github.com/ariefcatur/go-checkout-saga/internal/refund"
	"github.com/ariefcatur/go-checkout-saga/internal/saga"
	"github.com/ariefcatur/go-checkout-saga/internal/wallet"
)

type Options struct {
	PaymentDecider payment.Decider // default: decline 13.00
	OrderStore     orders.Store    // default: memory
	// RefundSettler defaults to a gateway that approves every reversal.
	RefundSettler refund.Settler
	Ledger        *wallet.Ledger
	Log           *slog.Logger
}

type System struct {
	Bus      *saga.Bus
	Payments *payment.Service
	Orders   *orders.Service
	Tracker  *compensation.Tracker
	Refunds  *refund.Service
	Ledger   *wallet.Ledger
}

func New(opts Options) *System {
	if opts.PaymentDecider == nil {
		opts.PaymentDecider = payment.NewAmountTrigger(payment.DefaultFailAmount)
	}
	if opts.OrderStore == nil {
		opts.OrderStore = orders.NewMemoryStore()
	}
	if opts.Ledger == nil {
		opts.Ledger = wallet.NewLedger(wallet.NewMemoryStore())
	}
	if opts.RefundSettler == nil {
		opts.RefundSettler = refund.GatewaySettler{Decider: payment.Fixed{Approve: true}}
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	bus := saga.NewBus()
	s := &System{
		Bus:      bus,
		Payments: payment.NewService(payment.NewMemoryStore(), opts.PaymentDecider),
		Orders:   orders.NewService(opts.OrderStore),
		Tracker:  &compensation.Tracker{Store: compensation.NewMemoryStore(), Publisher: bus, Producer: "compensation", Log: log},
		Refunds:  refund.NewService(refund.NewMemoryStore(), opts.RefundSettler),
		Ledger:   opts.Ledger,
	}
	s.Orders.Log = log
	s.Refunds.Log = log

	paymentStep := &payment.Step{Service: s.Payments, Publisher: bus, Producer: "payment"}
	orderStep := &orders.Step{Service: s.Orders, Publisher: bus, Producer: "orders"}
	refundStep := &refund.Step{Service: s.Refunds, Publisher: bus, Producer: "refund"}

	subscribe := func(topic string, r *saga.Registry) {
		in := &saga.Inbox{Registry: r, Dedup: saga.NewMemoryDedup(), DeadLetter: bus, Timeout: 5 * time.Second, Log: log}
		bus.Subscribe(topic, r.Component(), in.Handle)
	}
	subscribe(saga.TopicCheckoutEvents, paymentStep.Registry())
	subscribe(saga.TopicCheckoutEvents, orderStep.Registry())
	subscribe(saga.TopicCheckoutEvents, s.Tracker.Registry())
	subscribe(saga.TopicRefundCommands, refundStep.Registry())
	return s
}

// Checkout starts a saga and runs it to quiescence.
func (s *System) Checkout(ctx context.Context, ev saga.CheckoutInitiated) error {
	if err := saga.Emit(ctx, s.Bus, saga.TopicCheckoutEvents, saga.EventCheckoutInitiated, ev.SagaID, "api", ev); err != nil {
		return err
	}
	return s.Bus.Drain(ctx)
}

// Outcome names the terminal state a saga reached, or "" while it is
// still open.
type Outcome string

const (
	OutcomePaymentFailed   Outcome = "PaymentFailed"
	OutcomeOrderCreated    Outcome = "OrderCreated"
	OutcomeRefundCompleted Outcome = "OrderCreationFailed+RefundCompleted"
	OutcomeRefundFailed    Outcome = "OrderCreationFailed+RefundFailed"
	OutcomeOpen            Outcome = ""
)

func (s *System) Outcome(ctx context.Context, sagaID string) (Outcome, error) {
	rec, err := s.Tracker.Get(ctx, sagaID)
	if err != nil {
		return OutcomeOpen, err
	}
	switch rec.State {
	case compensation.StatePaymentFailed:
		return OutcomePaymentFailed, nil
	case compensation.StateOrderCreated:
		return OutcomeOrderCreated, nil
	case compensation.StateCompensated:
		return OutcomeRefundCompleted, nil
	case compensation.StateCompensationFailed:
		return OutcomeRefundFailed, nil
	}
	return OutcomeOpen, nil
}
