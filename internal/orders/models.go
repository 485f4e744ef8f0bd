package orders

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrSnapshotNotFound  = errors.New("checkout snapshot not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidOrder      = errors.New("invalid order")
	// ErrRejected marks store failures caused by the data itself; retrying
	// the same payload cannot fix them.
	ErrRejected = errors.New("order rejected by store")
)

type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Order struct {
	ID                   string          `json:"id"` // = saga id
	UserID               string          `json:"user_id"`
	Items                []Item          `json:"items"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	Shipping             decimal.Decimal `json:"shipping"`
	Tax                  decimal.Decimal `json:"tax"`
	Discount             decimal.Decimal `json:"discount"`
	Total                decimal.Decimal `json:"total"`
	Status               Status          `json:"status"`
	PaymentTransactionID string          `json:"payment_transaction_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Snapshot is this step's own copy of the priced cart announced at checkout.
type Snapshot struct {
	SagaID     string
	UserID     string
	Items      []Item
	Amounts    saga.Amounts
	ReceivedAt time.Time
}

func snapshotFromEvent(ev saga.CheckoutInitiated, at time.Time) Snapshot {
	items := make([]Item, 0, len(ev.Items))
	for _, it := range ev.Items {
		items = append(items, Item{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	amounts := ev.Amounts
	if amounts.Total.IsZero() {
		amounts.Total = ev.TotalAmount
	}
	return Snapshot{SagaID: ev.SagaID, UserID: ev.UserID, Items: items, Amounts: amounts, ReceivedAt: at}
}

func (s Snapshot) order(now time.Time) Order {
	return Order{
		ID:        s.SagaID,
		UserID:    s.UserID,
		Items:     s.Items,
		Subtotal:  s.Amounts.Subtotal,
		Shipping:  s.Amounts.Shipping,
		Tax:       s.Amounts.Tax,
		Discount:  s.Amounts.Discount,
		Total:     s.Amounts.Total,
		Status:    StatusPendingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func validateOrder(o Order) error {
	switch {
	case o.ID == "":
		return errors.Join(ErrInvalidOrder, errors.New("id is required"))
	case o.UserID == "":
		return errors.Join(ErrInvalidOrder, errors.New("user_id is required"))
	case len(o.Items) == 0:
		return errors.Join(ErrInvalidOrder, errors.New("order has no items"))
	case !o.Total.IsPositive():
		return errors.Join(ErrInvalidOrder, errors.New("total must be positive"))
	}
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			return errors.Join(ErrInvalidOrder, errors.New("invalid quantity for product "+it.ProductID))
		}
	}
	return nil
}
