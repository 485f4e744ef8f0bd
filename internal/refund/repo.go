package refund

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const refundColumns = `refund_id, command_id, saga_id, user_id, amount, status, reason, message, settlement, transaction_id, refunded_at`

// Insert relies on the partial unique indexes refunds_one_completed
// (saga_id WHERE status='COMPLETED') and refunds_command (command_id).
func (r *Repo) Insert(ctx context.Context, rf Refund) (Refund, bool, error) {
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO refunds(`+refundColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT DO NOTHING`,
		rf.RefundID, nullable(rf.CommandID), rf.SagaID, rf.UserID, rf.Amount, string(rf.Status), rf.Reason, rf.Message,
		rf.Settlement, nullable(rf.TransactionID), rf.RefundedAt,
	)
	if err != nil {
		return Refund{}, false, fmt.Errorf("insert refund: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return rf, true, nil
	}
	if rf.CommandID != "" {
		existing, err := r.GetByCommand(ctx, rf.CommandID)
		if !errors.Is(err, ErrNotFound) {
			return existing, false, err
		}
	}
	existing, err := r.GetBySaga(ctx, rf.SagaID)
	return existing, false, err
}

func (r *Repo) GetBySaga(ctx context.Context, sagaID string) (Refund, error) {
	return scanRefund(r.DB.QueryRow(ctx, `
		SELECT `+refundColumns+`
		FROM refunds WHERE saga_id=$1
		ORDER BY (status = 'COMPLETED') DESC, refunded_at DESC
		LIMIT 1`, sagaID))
}

func (r *Repo) GetByCommand(ctx context.Context, commandID string) (Refund, error) {
	return scanRefund(r.DB.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE command_id=$1`, commandID))
}

func scanRefund(row pgx.Row) (Refund, error) {
	var (
		rf          Refund
		status      string
		cmdID, txID *string
	)
	err := row.Scan(&rf.RefundID, &cmdID, &rf.SagaID, &rf.UserID, &rf.Amount, &status, &rf.Reason, &rf.Message,
		&rf.Settlement, &txID, &rf.RefundedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Refund{}, ErrNotFound
	}
	if err != nil {
		return Refund{}, fmt.Errorf("get refund: %w", err)
	}
	rf.Status = Status(status)
	if cmdID != nil {
		rf.CommandID = *cmdID
	}
	if txID != nil {
		rf.TransactionID = *txID
	}
	return rf, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
