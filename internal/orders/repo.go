package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, user_id, items, subtotal, shipping, tax, discount, total,
	status, payment_transaction_id, created_at, updated_at`

func (r *Repo) SaveSnapshot(ctx context.Context, s Snapshot) error {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO checkout_snapshots(saga_id, user_id, items, subtotal, shipping, tax, discount, total, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (saga_id) DO NOTHING`,
		s.SagaID, s.UserID, items, s.Amounts.Subtotal, s.Amounts.Shipping, s.Amounts.Tax,
		s.Amounts.Discount, s.Amounts.Total, s.ReceivedAt,
	)
	if err != nil {
		return classify("save checkout snapshot", err)
	}
	return nil
}

func (r *Repo) GetSnapshot(ctx context.Context, sagaID string) (Snapshot, error) {
	var (
		s     Snapshot
		items []byte
	)
	err := r.DB.QueryRow(ctx, `
		SELECT saga_id, user_id, items, subtotal, shipping, tax, discount, total, received_at
		FROM checkout_snapshots WHERE saga_id=$1`, sagaID,
	).Scan(&s.SagaID, &s.UserID, &items, &s.Amounts.Subtotal, &s.Amounts.Shipping,
		&s.Amounts.Tax, &s.Amounts.Discount, &s.Amounts.Total, &s.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get checkout snapshot: %w", err)
	}
	if err := json.Unmarshal(items, &s.Items); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot items: %w", err)
	}
	return s, nil
}

func (r *Repo) Insert(ctx context.Context, o Order) (Order, bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o.Status = StatusPendingPayment
	created, err := insertOrder(ctx, tx, o)
	if err != nil {
		return Order{}, false, err
	}
	stored, err := getOrder(ctx, tx, o.ID, false)
	if err != nil {
		return Order{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return stored, created, nil
}

// Confirm inserts the order as PENDING_PAYMENT and moves it forward in the
// same transaction, so no reader ever sees a paid saga without an order.
func (r *Repo) Confirm(ctx context.Context, o Order, paymentTxID string) (Order, bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o.Status = StatusPendingPayment
	created, err := insertOrder(ctx, tx, o)
	if err != nil {
		return Order{}, false, err
	}
	cur, err := getOrder(ctx, tx, o.ID, true)
	if err != nil {
		return Order{}, false, err
	}
	if cur.Status != StatusPendingFulfillment {
		if !CanTransition(cur.Status, StatusPendingFulfillment) {
			return cur, false, ErrInvalidTransition
		}
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET status=$2, payment_transaction_id=$3, updated_at=now()
			WHERE id=$1`, o.ID, string(StatusPendingFulfillment), paymentTxID); err != nil {
			return Order{}, false, classify("confirm order", err)
		}
		if cur, err = getOrder(ctx, tx, o.ID, false); err != nil {
			return Order{}, false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return cur, created, nil
}

func (r *Repo) Transition(ctx context.Context, id string, to Status) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := getOrder(ctx, tx, id, true)
	if err != nil {
		return Order{}, err
	}
	if cur.Status == to {
		return cur, nil
	}
	if !CanTransition(cur.Status, to) {
		return cur, ErrInvalidTransition
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(to)); err != nil {
		return Order{}, classify("transition order", err)
	}
	cur, err = getOrder(ctx, tx, id, false)
	if err != nil {
		return Order{}, err
	}
	return cur, tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	return getOrder(ctx, r.DB, id, false)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertOrder(ctx context.Context, tx pgx.Tx, o Order) (bool, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return false, err
	}
	ct, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, items, subtotal, shipping, tax, discount, total, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
		ON CONFLICT (id) DO NOTHING`,
		o.ID, o.UserID, items, o.Subtotal, o.Shipping, o.Tax, o.Discount, o.Total, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return false, classify("insert order", err)
	}
	return ct.RowsAffected() == 1, nil
}

func getOrder(ctx context.Context, q querier, id string, lock bool) (Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var (
		o      Order
		items  []byte
		status string
		payTx  *string
	)
	err := q.QueryRow(ctx, sql, id).Scan(&o.ID, &o.UserID, &items, &o.Subtotal, &o.Shipping, &o.Tax,
		&o.Discount, &o.Total, &status, &payTx, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode order items: %w", err)
	}
	o.Status = Status(status)
	if payTx != nil {
		o.PaymentTransactionID = *payTx
	}
	return o, nil
}

// classify wraps data and integrity violations (SQLSTATE classes 22, 23)
// in ErrRejected. Everything else stays retryable.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")) {
		return fmt.Errorf("%s: %w: %s (%s)", op, ErrRejected, pgErr.Message, pgErr.Code)
	}
	return fmt.Errorf("%s: %w", op, err)
}
