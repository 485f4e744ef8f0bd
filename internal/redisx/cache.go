package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-checkout-saga/internal/orders"
)

type statusEntry struct {
	Status    orders.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type StatusCache struct {
	RDB *redis.Client
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID string) (orders.Status, bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var e statusEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return "", false, err
	}
	return e.Status, true, nil
}

func (c *StatusCache) SetStatus(ctx context.Context, orderID string, s orders.Status) error {
	b, err := json.Marshal(statusEntry{Status: s, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, TTLStatusCache).Err()
}

// CheckoutKeys maps client idempotency keys to saga ids.
type CheckoutKeys struct {
	RDB *redis.Client
}

// Reserve binds key to sagaID unless it is already bound, in which case the
// earlier saga id is returned with fresh=false.
func (k *CheckoutKeys) Reserve(ctx context.Context, key, sagaID string) (string, bool, error) {
	rk := fmt.Sprintf(KeyIdemCheckout, key)
	ok, err := k.RDB.SetNX(ctx, rk, sagaID, TTLIdempotency).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return sagaID, true, nil
	}
	existing, err := k.RDB.Get(ctx, rk).Result()
	if err != nil {
		return "", false, err
	}
	return existing, false, nil
}

// Forget drops a reservation whose checkout was never published.
func (k *CheckoutKeys) Forget(ctx context.Context, key string) error {
	return k.RDB.Del(ctx, fmt.Sprintf(KeyIdemCheckout, key)).Err()
}
