package refund

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

var (
	ErrNotFound       = errors.New("refund not found")
	ErrInvalidCommand = errors.New("invalid refund command")
)

// Command asks for the payment of a saga to be reversed. CommandID names
// one request: redelivering it never settles twice. Commands without an id
// (operator retries) always get a new attempt unless the saga is refunded.
type Command struct {
	CommandID string          `json:"command_id,omitempty"`
	SagaID    string          `json:"saga_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (c Command) validate() error {
	var errs []error
	if c.SagaID == "" {
		errs = append(errs, errors.New("saga_id is required"))
	}
	if c.UserID == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	if !c.Amount.IsPositive() {
		errs = append(errs, errors.New("amount must be positive"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidCommand}, errs...)...)
	}
	return nil
}

// Refund is one settlement attempt. TransactionID links the reversal and is
// only set on COMPLETED.
type Refund struct {
	RefundID      string          `json:"refund_id"`
	CommandID     string          `json:"command_id,omitempty"`
	SagaID        string          `json:"saga_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        Status          `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	Message       string          `json:"message,omitempty"`
	Settlement    string          `json:"settlement"`
	TransactionID string          `json:"transaction_id,omitempty"`
	RefundedAt    time.Time       `json:"refunded_at"`
}

func (r Refund) Completed() bool { return r.Status == StatusCompleted }
