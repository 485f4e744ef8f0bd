package refund

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	Store   Store
	Settler Settler
	Now     func() time.Time
	Log     *slog.Logger
}

func NewService(store Store, settler Settler) *Service {
	return &Service{Store: store, Settler: settler, Now: time.Now}
}

// ProcessRefund settles cmd unless it was already attempted, in which case
// the stored attempt is returned, or the saga already has a COMPLETED
// refund, which is returned unchanged. A new command may retry a FAILED
// attempt.
func (s *Service) ProcessRefund(ctx context.Context, cmd Command) (Refund, error) {
	if err := cmd.validate(); err != nil {
		return Refund{}, err
	}

	if cmd.CommandID != "" {
		prev, err := s.Store.GetByCommand(ctx, cmd.CommandID)
		switch {
		case err == nil:
			return prev, nil
		case !errors.Is(err, ErrNotFound):
			return Refund{}, err
		}
	}

	existing, err := s.Store.GetBySaga(ctx, cmd.SagaID)
	switch {
	case err == nil && existing.Completed():
		return existing, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Refund{}, err
	}

	st, err := s.Settler.Settle(ctx, cmd)
	if err != nil {
		return Refund{}, err
	}

	rf := Refund{
		RefundID:   uuid.NewString(),
		CommandID:  cmd.CommandID,
		SagaID:     cmd.SagaID,
		UserID:     cmd.UserID,
		Amount:     cmd.Amount,
		Status:     StatusFailed,
		Reason:     cmd.Reason,
		Message:    st.Message,
		Settlement: s.Settler.Name(),
		RefundedAt: s.now(),
	}
	if st.Approved {
		rf.Status = StatusCompleted
		rf.TransactionID = st.TransactionID
	}

	stored, _, err := s.Store.Insert(ctx, rf)
	if err != nil {
		return Refund{}, err
	}
	s.logger().Info("refund processed", "saga_id", stored.SagaID, "status", stored.Status, "settlement", stored.Settlement)
	return stored, nil
}

func (s *Service) Get(ctx context.Context, sagaID string) (Refund, error) {
	return s.Store.GetBySaga(ctx, sagaID)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
