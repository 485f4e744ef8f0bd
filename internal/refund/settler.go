package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-checkout-saga/internal/payment"
	"github.com/ariefcatur/go-checkout-saga/internal/wallet"
)

// Settlement is the outcome of one reversal attempt. A declined reversal is
// an outcome, not an error.
type Settlement struct {
	Approved      bool
	TransactionID string
	Message       string
}

// Settler moves the money back. Errors are infrastructure failures and the
// command is retried.
type Settler interface {
	Name() string
	Settle(ctx context.Context, cmd Command) (Settlement, error)
}

// GatewaySettler reverses through the external processor. Whether the
// processor accepts is decided by the injected payment decider.
type GatewaySettler struct {
	Decider payment.Decider
}

func (GatewaySettler) Name() string { return "gateway" }

func (g GatewaySettler) Settle(ctx context.Context, cmd Command) (Settlement, error) {
	d, err := g.Decider.Decide(ctx, payment.Request{
		SagaID:   cmd.SagaID,
		UserID:   cmd.UserID,
		Amount:   cmd.Amount,
		Currency: payment.DefaultCurrency,
		Method:   payment.DefaultMethod,
	})
	if err != nil {
		return Settlement{}, fmt.Errorf("gateway reversal: %w", err)
	}
	if !d.Approved {
		return Settlement{Message: d.Reason}, nil
	}
	return Settlement{Approved: true, TransactionID: uuid.NewString(), Message: "Refund settled with payment processor"}, nil
}

// Crediter is the part of the wallet ledger a refund needs. Both the local
// ledger and the wallet HTTP client satisfy it.
type Crediter interface {
	Credit(ctx context.Context, userID string, amount decimal.Decimal, referenceID string) (wallet.Transaction, error)
}

// WalletSettler settles internally by crediting the buyer's wallet with the
// saga id as reference, so a repeated credit is a no-op in the ledger.
type WalletSettler struct {
	Crediter Crediter
}

func (WalletSettler) Name() string { return "wallet" }

func (w WalletSettler) Settle(ctx context.Context, cmd Command) (Settlement, error) {
	tx, err := w.Crediter.Credit(ctx, cmd.UserID, cmd.Amount, cmd.SagaID)
	if errors.Is(err, wallet.ErrInvalidAmount) || errors.Is(err, wallet.ErrInvalidRequest) {
		return Settlement{Message: err.Error()}, nil
	}
	if err != nil {
		return Settlement{}, fmt.Errorf("wallet credit: %w", err)
	}
	if tx.Status != wallet.TxSuccess {
		return Settlement{Message: tx.Message}, nil
	}
	return Settlement{Approved: true, TransactionID: tx.TransactionID, Message: tx.Message}, nil
}
