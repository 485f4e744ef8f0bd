package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-checkout-saga/internal/compensation"
)

// SagaStore keeps compensation records as hashes under saga:{id}.
type SagaStore struct {
	RDB *redis.Client
}

func (s *SagaStore) Put(ctx context.Context, r compensation.Record) error {
	key := fmt.Sprintf(KeySaga, r.SagaID)
	_, err := s.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, map[string]any{
			"saga_id":                r.SagaID,
			"user_id":                r.UserID,
			"amount":                 r.Amount.String(),
			"payment_transaction_id": r.PaymentTransactionID,
			"state":                  string(r.State),
			"reason":                 r.Reason,
			"updated_at":             r.UpdatedAt.Format(time.RFC3339Nano),
		})
		p.Expire(ctx, key, TTLSaga)
		return nil
	})
	return err
}

func (s *SagaStore) Get(ctx context.Context, sagaID string) (compensation.Record, error) {
	h, err := s.RDB.HGetAll(ctx, fmt.Sprintf(KeySaga, sagaID)).Result()
	if err != nil {
		return compensation.Record{}, err
	}
	if len(h) == 0 {
		return compensation.Record{}, compensation.ErrNotFound
	}
	r := compensation.Record{
		SagaID:               h["saga_id"],
		UserID:               h["user_id"],
		PaymentTransactionID: h["payment_transaction_id"],
		State:                compensation.State(h["state"]),
		Reason:               h["reason"],
	}
	if v := h["amount"]; v != "" {
		if r.Amount, err = decimal.NewFromString(v); err != nil {
			return compensation.Record{}, fmt.Errorf("saga %s amount: %w", sagaID, err)
		}
	}
	if v := h["updated_at"]; v != "" {
		if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return compensation.Record{}, fmt.Errorf("saga %s updated_at: %w", sagaID, err)
		}
	}
	return r, nil
}
