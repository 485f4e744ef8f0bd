package saga

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventCheckoutInitiated   EventType = "CheckoutInitiated"
	EventPaymentProcessed    EventType = "PaymentProcessed"
	EventPaymentFailed       EventType = "PaymentFailed"
	EventOrderCreated        EventType = "OrderCreated"
	EventOrderCreationFailed EventType = "OrderCreationFailed"
	EventRefundRequested     EventType = "RefundRequested"
	EventRefundCompleted     EventType = "RefundCompleted"
	EventRefundFailed        EventType = "RefundFailed"
)

// ---- Payload per event ----

type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Amounts is the priced cart snapshot. Total is what the buyer is charged.
type Amounts struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

type CheckoutInitiated struct {
	SagaID      string          `json:"saga_id"`
	UserID      string          `json:"user_id"`
	Items       []Item          `json:"items"`
	Amounts     Amounts         `json:"amounts"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency,omitempty"`
}

type PaymentProcessed struct {
	SagaID        string          `json:"saga_id"`
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
}

type PaymentFailed struct {
	SagaID string `json:"saga_id"`
	Reason string `json:"reason"`
}

type OrderCreated struct {
	SagaID      string          `json:"saga_id"`
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderCreationFailed struct {
	SagaID string `json:"saga_id"`
	Reason string `json:"reason"`
}

type RefundRequested struct {
	SagaID string          `json:"saga_id"`
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// RefundOutcome is the payload of both RefundCompleted and RefundFailed.
type RefundOutcome struct {
	SagaID   string    `json:"saga_id"`
	RefundID string    `json:"refund_id"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
}
