package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Ledger struct {
	Store Store
	Now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store, Now: time.Now}
}

func (l *Ledger) Credit(ctx context.Context, userID string, amount decimal.Decimal, referenceID string) (Transaction, error) {
	return l.post(ctx, userID, TxCredit, amount, referenceID)
}

// Debit returns the FAILED transaction together with ErrInsufficientFunds
// when the balance does not cover amount.
func (l *Ledger) Debit(ctx context.Context, userID string, amount decimal.Decimal, referenceID string) (Transaction, error) {
	tx, err := l.post(ctx, userID, TxDebit, amount, referenceID)
	if err != nil {
		return Transaction{}, err
	}
	if tx.Status == TxFailed {
		return tx, ErrInsufficientFunds
	}
	return tx, nil
}

// Balance creates the wallet at zero on first use.
func (l *Ledger) Balance(ctx context.Context, userID string) (Wallet, error) {
	if userID == "" {
		return Wallet{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	return l.Store.Wallet(ctx, userID)
}

func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	return l.Store.History(ctx, userID, limit)
}

func (l *Ledger) post(ctx context.Context, userID string, t TxType, amount decimal.Decimal, referenceID string) (Transaction, error) {
	if userID == "" {
		return Transaction{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	e := Entry{
		TransactionID: uuid.NewString(),
		Type:          t,
		Amount:        amount,
		ReferenceID:   referenceID,
		At:            l.now(),
	}
	return l.Store.Apply(ctx, userID, e, func(w Wallet) (Wallet, Transaction) {
		return apply(w, e)
	})
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}
