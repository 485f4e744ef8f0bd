package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

// CheckoutKeys maps Idempotency-Key headers to saga ids.
type CheckoutKeys interface {
	Reserve(ctx context.Context, key, sagaID string) (existing string, fresh bool, err error)
	Forget(ctx context.Context, key string) error
}

type CheckoutHandler struct {
	Publisher saga.Publisher
	Keys      CheckoutKeys // optional
	Topic     string
	Service   string
}

type CheckoutReq struct {
	UserID   string       `json:"user_id"`
	Items    []saga.Item  `json:"items"`
	Amounts  saga.Amounts `json:"amounts"`
	Currency string       `json:"currency"`
}

type CheckoutResp struct {
	SagaID      string          `json:"saga_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Idempotent  bool            `json:"idempotent"`
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/checkouts", h.startCheckout)
}

// priced fills in derived amounts and rejects carts that cannot be charged.
func (req CheckoutReq) priced() (saga.Amounts, error) {
	if req.UserID == "" || len(req.Items) == 0 {
		return saga.Amounts{}, errors.Join(errValidation, errors.New("user_id and items are required"))
	}
	a := req.Amounts
	if a.Subtotal.IsZero() {
		for _, it := range req.Items {
			a.Subtotal = a.Subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return saga.Amounts{}, errors.Join(errValidation, fmt.Errorf("invalid item %q", it.ProductID))
		}
	}
	if a.Total.IsZero() {
		a.Total = a.Subtotal.Add(a.Shipping).Add(a.Tax).Sub(a.Discount)
	}
	if !a.Total.IsPositive() {
		return saga.Amounts{}, errors.Join(errValidation, errors.New("total must be positive"))
	}
	return a, nil
}

func (h *CheckoutHandler) startCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amounts, err := req.priced()
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	sagaID := uuid.NewString()
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.Keys != nil {
		existing, fresh, err := h.Keys.Reserve(ctx, idemKey, sagaID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !fresh {
			writeJSON(w, http.StatusAccepted, CheckoutResp{SagaID: existing, TotalAmount: amounts.Total, Idempotent: true})
			return
		}
	}

	topic := h.Topic
	if topic == "" {
		topic = saga.TopicCheckoutEvents
	}
	err = saga.Emit(ctx, h.Publisher, topic, saga.EventCheckoutInitiated, sagaID, h.Service, saga.CheckoutInitiated{
		SagaID:      sagaID,
		UserID:      req.UserID,
		Items:       req.Items,
		Amounts:     amounts,
		TotalAmount: amounts.Total,
		Currency:    req.Currency,
	})
	if err != nil {
		if idemKey != "" && h.Keys != nil {
			_ = h.Keys.Forget(ctx, idemKey)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, CheckoutResp{SagaID: sagaID, TotalAmount: amounts.Total})
}
