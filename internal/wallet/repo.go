package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const txColumns = `transaction_id, user_id, amount, type, status, message, reference_id, new_balance, created_at`

// Apply serialises writers of one wallet on its row lock.
func (r *Repo) Apply(ctx context.Context, userID string, e Entry, m Mutation) (Transaction, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO wallets(user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return Transaction{}, fmt.Errorf("ensure wallet: %w", err)
	}
	var w Wallet
	if err := tx.QueryRow(ctx, `SELECT user_id, balance, updated_at FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&w.UserID, &w.Balance, &w.UpdatedAt); err != nil {
		return Transaction{}, fmt.Errorf("lock wallet: %w", err)
	}

	if e.ReferenceID != "" {
		prior, err := scanTx(tx.QueryRow(ctx, `SELECT `+txColumns+` FROM wallet_transactions
			WHERE user_id=$1 AND reference_id=$2 AND type=$3 AND status=$4`,
			userID, e.ReferenceID, string(e.Type), string(TxSuccess)))
		if err == nil {
			return prior, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("lookup reference: %w", err)
		}
	}

	next, entry := m(w)
	var ref *string
	if entry.ReferenceID != "" {
		ref = &entry.ReferenceID
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO wallet_transactions(`+txColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.TransactionID, entry.UserID, entry.Amount, string(entry.Type), string(entry.Status),
		entry.Message, ref, entry.NewBalance, entry.At,
	); err != nil {
		return Transaction{}, fmt.Errorf("insert wallet transaction: %w", err)
	}
	if entry.Status == TxSuccess {
		if _, err := tx.Exec(ctx, `UPDATE wallets SET balance=$2, updated_at=$3 WHERE user_id=$1`,
			userID, next.Balance, next.UpdatedAt); err != nil {
			return Transaction{}, fmt.Errorf("update wallet: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return entry, nil
}

func (r *Repo) Wallet(ctx context.Context, userID string) (Wallet, error) {
	var w Wallet
	err := r.DB.QueryRow(ctx, `
		INSERT INTO wallets(user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING user_id, balance, updated_at`, userID,
	).Scan(&w.UserID, &w.Balance, &w.UpdatedAt)
	if err != nil {
		return Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (r *Repo) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `SELECT `+txColumns+` FROM wallet_transactions
		WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTx(row pgx.Row) (Transaction, error) {
	var (
		t           Transaction
		typ, status string
		ref         *string
	)
	if err := row.Scan(&t.TransactionID, &t.UserID, &t.Amount, &typ, &status, &t.Message, &ref, &t.NewBalance, &t.At); err != nil {
		return Transaction{}, err
	}
	t.Type, t.Status = TxType(typ), TxStatus(status)
	if ref != nil {
		t.ReferenceID = *ref
	}
	return t, nil
}
