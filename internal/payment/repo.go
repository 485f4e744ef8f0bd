package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// Insert relies on the unique index on saga_id for idempotency.
func (r *Repo) Insert(ctx context.Context, tx Transaction) (Transaction, bool, error) {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO payment_transactions
			(transaction_id, saga_id, user_id, amount, currency, method, status, message, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (saga_id) DO NOTHING`,
		tx.TransactionID, tx.SagaID, tx.UserID, tx.Amount, tx.Currency, tx.Method,
		string(tx.Status), tx.Message, tx.RecordedAt,
	)
	if err != nil {
		return Transaction{}, false, fmt.Errorf("insert payment transaction: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return tx, true, nil
	}
	existing, err := r.GetBySaga(ctx, tx.SagaID)
	return existing, false, err
}

func (r *Repo) GetBySaga(ctx context.Context, sagaID string) (Transaction, error) {
	var (
		t      Transaction
		status string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT transaction_id, saga_id, user_id, amount, currency, method, status, message, recorded_at
		FROM payment_transactions WHERE saga_id=$1`, sagaID,
	).Scan(&t.TransactionID, &t.SagaID, &t.UserID, &t.Amount, &t.Currency, &t.Method, &status, &t.Message, &t.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("get payment transaction: %w", err)
	}
	t.Status = Status(status)
	return t, nil
}
