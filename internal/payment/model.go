package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

const (
	DefaultCurrency = "USD"
	DefaultMethod   = "CREDIT_CARD"
	MessageSuccess  = "Payment processed successfully."
)

var (
	ErrNotFound       = errors.New("payment transaction not found")
	ErrInvalidRequest = errors.New("invalid payment request")
)

// Transaction is immutable once recorded; one per saga.
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	SagaID        string          `json:"saga_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Method        string          `json:"payment_method"`
	Status        Status          `json:"status"`
	Message       string          `json:"message"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

func (t Transaction) Succeeded() bool { return t.Status == StatusSuccess }

type Request struct {
	SagaID   string          `json:"saga_id"`
	UserID   string          `json:"user_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Method   string          `json:"payment_method"`
}

func (r Request) withDefaults() Request {
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.Method == "" {
		r.Method = DefaultMethod
	}
	return r
}

func (r Request) validate() error {
	switch {
	case r.SagaID == "":
		return errors.Join(ErrInvalidRequest, errors.New("saga_id is required"))
	case !r.Amount.IsPositive():
		return errors.Join(ErrInvalidRequest, errors.New("amount must be positive"))
	}
	return nil
}
