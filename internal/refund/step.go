package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

// Step consumes refund commands and announces the outcome on the checkout
// topic.
type Step struct {
	Service   *Service
	Publisher saga.Publisher
	Producer  string
	Topic     string
}

func (s *Step) Registry() *saga.Registry {
	return saga.NewRegistry("refund").
		Register(saga.EventRefundRequested, s.HandleRefundRequested)
}

func (s *Step) HandleRefundRequested(ctx context.Context, env saga.Envelope) error {
	ev, err := saga.Decode[saga.RefundRequested](env)
	if err != nil {
		return err
	}
	_, err = s.Process(ctx, Command{CommandID: env.EventID, SagaID: env.SagaID, UserID: ev.UserID, Amount: ev.Amount, Reason: ev.Reason})
	switch {
	case errors.Is(err, ErrInvalidCommand):
		return fmt.Errorf("%w: %v", saga.ErrMalformed, err)
	case err != nil:
		return fmt.Errorf("refund saga %s: %w", env.SagaID, err)
	}
	return nil
}

// Process runs a refund and publishes its outcome. A repeated command
// announces the outcome of its first attempt again. The HTTP surface calls
// it directly.
func (s *Step) Process(ctx context.Context, cmd Command) (Refund, error) {
	rf, err := s.Service.ProcessRefund(ctx, cmd)
	if err != nil {
		return Refund{}, err
	}
	t := saga.EventRefundFailed
	if rf.Completed() {
		t = saga.EventRefundCompleted
	}
	err = saga.Emit(ctx, s.Publisher, s.topic(), t, rf.SagaID, s.Producer, saga.RefundOutcome{
		SagaID:   rf.SagaID,
		RefundID: rf.RefundID,
		Status:   string(rf.Status),
		At:       rf.RefundedAt,
	})
	return rf, err
}

func (s *Step) topic() string {
	if s.Topic == "" {
		return saga.TopicCheckoutEvents
	}
	return s.Topic
}
