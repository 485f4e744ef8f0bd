package wallet

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxCredit TxType = "CREDIT"
	TxDebit  TxType = "DEBIT"
)

type TxStatus string

const (
	TxSuccess TxStatus = "SUCCESS"
	TxFailed  TxStatus = "FAILED"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidRequest    = errors.New("invalid wallet request")
)

// Wallet is keyed by user id; one per user, never negative.
type Wallet struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is an append-only ledger entry. NewBalance is the balance
// right after the entry was applied (unchanged for FAILED).
type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TxType          `json:"transaction_type"`
	Status        TxStatus        `json:"status"`
	Message       string          `json:"message"`
	ReferenceID   string          `json:"reference_id,omitempty"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	At            time.Time       `json:"timestamp"`
}

// Entry describes the ledger operation to apply.
type Entry struct {
	TransactionID string
	Type          TxType
	Amount        decimal.Decimal
	ReferenceID   string
	At            time.Time
}

// apply is the balance rule. It never produces a negative balance: a debit
// larger than the balance yields a FAILED transaction and leaves w as is.
func apply(w Wallet, e Entry) (Wallet, Transaction) {
	tx := Transaction{
		TransactionID: e.TransactionID,
		UserID:        w.UserID,
		Amount:        e.Amount,
		Type:          e.Type,
		Status:        TxSuccess,
		ReferenceID:   e.ReferenceID,
		At:            e.At,
	}
	next := w
	switch e.Type {
	case TxCredit:
		next.Balance = w.Balance.Add(e.Amount)
	case TxDebit:
		if w.Balance.LessThan(e.Amount) {
			tx.Status = TxFailed
		} else {
			next.Balance = w.Balance.Sub(e.Amount)
		}
	}
	if tx.Status == TxSuccess {
		next.UpdatedAt = e.At
	}
	tx.NewBalance = next.Balance
	tx.Message = fmt.Sprintf("%s of %s %s. New balance: %s", e.Type, e.Amount, tx.Status, next.Balance)
	if tx.Status == TxFailed {
		tx.Message += ". " + ErrInsufficientFunds.Error()
	}
	return next, tx
}
