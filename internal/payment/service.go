package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	Store   Store
	Decider Decider
	Now     func() time.Time
}

func NewService(store Store, decider Decider) *Service {
	return &Service{Store: store, Decider: decider, Now: time.Now}
}

// ProcessPayment charges once per saga. A saga that already has a
// transaction gets that transaction back and the decider is not consulted.
func (s *Service) ProcessPayment(ctx context.Context, req Request) (Transaction, error) {
	req = req.withDefaults()
	if err := req.validate(); err != nil {
		return Transaction{}, err
	}

	existing, err := s.Store.GetBySaga(ctx, req.SagaID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Transaction{}, err
	}

	d, err := s.Decider.Decide(ctx, req)
	if err != nil {
		return Transaction{}, fmt.Errorf("payment decision: %w", err)
	}

	tx := Transaction{
		TransactionID: uuid.NewString(),
		SagaID:        req.SagaID,
		UserID:        req.UserID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Method:        req.Method,
		Status:        StatusFailed,
		Message:       d.Reason,
		RecordedAt:    s.now(),
	}
	if d.Approved {
		tx.Status = StatusSuccess
		tx.Message = MessageSuccess
	}

	stored, _, err := s.Store.Insert(ctx, tx)
	if err != nil {
		return Transaction{}, err
	}
	return stored, nil
}

func (s *Service) Get(ctx context.Context, sagaID string) (Transaction, error) {
	return s.Store.GetBySaga(ctx, sagaID)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
