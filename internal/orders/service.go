package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

var ErrAmountMismatch = errors.New("payment amount does not match order total")

// StatusCache is a read-through cache for GET /orders/{id}/status.
type StatusCache interface {
	GetStatus(ctx context.Context, orderID string) (Status, bool, error)
	SetStatus(ctx context.Context, orderID string, s Status) error
}

type Service struct {
	Store Store
	Cache StatusCache // optional
	Now   func() time.Time
	Log   *slog.Logger
}

func NewService(store Store) *Service {
	return &Service{Store: store, Now: time.Now}
}

type CreateRequest struct {
	OrderID  string          `json:"order_id"`
	UserID   string          `json:"user_id"`
	Items    []Item          `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// IsCreationFailure reports whether err ends the saga's order step with
// OrderCreationFailed rather than a retry.
func IsCreationFailure(err error) bool {
	return errors.Is(err, ErrInvalidOrder) ||
		errors.Is(err, ErrSnapshotNotFound) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrRejected) ||
		errors.Is(err, ErrInvalidTransition)
}

// Create stores an order in PENDING_PAYMENT. Repeating the same id returns
// the existing order with created=false.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Order, bool, error) {
	now := s.now()
	o := Order{
		ID:        req.OrderID,
		UserID:    req.UserID,
		Items:     req.Items,
		Subtotal:  req.Subtotal,
		Shipping:  req.Shipping,
		Tax:       req.Tax,
		Discount:  req.Discount,
		Total:     req.Total,
		Status:    StatusPendingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := validateOrder(o); err != nil {
		return Order{}, false, err
	}
	stored, created, err := s.Store.Insert(ctx, o)
	if err != nil {
		return Order{}, false, err
	}
	s.cache(ctx, stored)
	return stored, created, nil
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	return s.Store.Get(ctx, id)
}

// GetStatus serves from the cache when it can; cache errors fall through to
// the store.
func (s *Service) GetStatus(ctx context.Context, id string) (Status, error) {
	if s.Cache != nil {
		if st, ok, err := s.Cache.GetStatus(ctx, id); err == nil && ok {
			return st, nil
		}
	}
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	s.cache(ctx, o)
	return o.Status, nil
}

func (s *Service) RecordCheckout(ctx context.Context, ev saga.CheckoutInitiated) error {
	return s.Store.SaveSnapshot(ctx, snapshotFromEvent(ev, s.now()))
}

// ConfirmPayment materialises the order for a paid saga from its checkout
// snapshot. Errors matching IsCreationFailure are final for the saga.
func (s *Service) ConfirmPayment(ctx context.Context, ev saga.PaymentProcessed) (Order, error) {
	snap, err := s.Store.GetSnapshot(ctx, ev.SagaID)
	if err != nil {
		return Order{}, err
	}
	o := snap.order(s.now())
	if err := validateOrder(o); err != nil {
		return Order{}, err
	}
	if !ev.Amount.IsZero() && !ev.Amount.Equal(o.Total) {
		return Order{}, fmt.Errorf("%w: paid %s, total %s", ErrAmountMismatch, ev.Amount, o.Total)
	}
	stored, created, err := s.Store.Confirm(ctx, o, ev.TransactionID)
	if err != nil {
		return Order{}, err
	}
	if created {
		s.logger().Info("order created", "order_id", stored.ID, "total", stored.Total.String())
	}
	s.cache(ctx, stored)
	return stored, nil
}

// MarkFailed moves an order still waiting for payment to FAILED. Sagas
// without an order are left alone.
func (s *Service) MarkFailed(ctx context.Context, sagaID string) error {
	o, err := s.Store.Transition(ctx, sagaID, StatusFailed)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case errors.Is(err, ErrInvalidTransition):
		s.logger().Warn("order not failed", "order_id", sagaID, "status", o.Status)
		return nil
	case err != nil:
		return err
	}
	s.cache(ctx, o)
	return nil
}

func (s *Service) cache(ctx context.Context, o Order) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetStatus(ctx, o.ID, o.Status); err != nil {
		s.logger().Warn("status cache set failed", "order_id", o.ID, "err", err)
	}
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
