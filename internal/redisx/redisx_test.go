package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-saga/internal/compensation"
	"github.com/ariefcatur/go-checkout-saga/internal/orders"
	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestDedupLifecycle(t *testing.T) {
	mr, rdb := newRedis(t)
	d := &Dedup{RDB: rdb}
	ctx := context.Background()

	res, err := d.Claim(ctx, "payment:s1:CheckoutInitiated", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, saga.Claimed, res)

	res, err = d.Claim(ctx, "payment:s1:CheckoutInitiated", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, saga.InFlight, res)

	require.NoError(t, d.Complete(ctx, "payment:s1:CheckoutInitiated"))
	res, err = d.Claim(ctx, "payment:s1:CheckoutInitiated", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, saga.Done, res)
	assert.Equal(t, TTLDedup, mr.TTL("dedup:payment:s1:CheckoutInitiated"))
}

func TestDedupReleaseAndExpiry(t *testing.T) {
	mr, rdb := newRedis(t)
	d := &Dedup{RDB: rdb}
	ctx := context.Background()

	_, err := d.Claim(ctx, "k", time.Second)
	require.NoError(t, err)
	require.NoError(t, d.Release(ctx, "k"))
	res, err := d.Claim(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, saga.Claimed, res)

	// a crashed worker's claim lapses
	mr.FastForward(2 * time.Second)
	res, err = d.Claim(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.Equal(t, saga.Claimed, res)
}

func TestSagaStoreRoundTrip(t *testing.T) {
	mr, rdb := newRedis(t)
	s := &SagaStore{RDB: rdb}
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, compensation.ErrNotFound)

	in := compensation.Record{
		SagaID: "s1", UserID: "u1", Amount: decimal.RequireFromString("99.95"),
		PaymentTransactionID: "tx1", State: compensation.StateCompensating, Reason: "db down",
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.Put(ctx, in))
	out, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, out.Amount.Equal(in.Amount))
	out.Amount = in.Amount
	assert.Equal(t, in, out)
	assert.Equal(t, TTLSaga, mr.TTL("saga:s1"))
}

func TestStatusCache(t *testing.T) {
	mr, rdb := newRedis(t)
	c := &StatusCache{RDB: rdb}
	ctx := context.Background()

	_, ok, err := c.GetStatus(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetStatus(ctx, "o1", orders.StatusPendingFulfillment))
	st, ok, err := c.GetStatus(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, orders.StatusPendingFulfillment, st)

	mr.FastForward(TTLStatusCache + time.Second)
	_, ok, err = c.GetStatus(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckoutKeysReserve(t *testing.T) {
	_, rdb := newRedis(t)
	k := &CheckoutKeys{RDB: rdb}
	ctx := context.Background()

	id, fresh, err := k.Reserve(ctx, "abc", "saga-1")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, "saga-1", id)

	id, fresh, err = k.Reserve(ctx, "abc", "saga-2")
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, "saga-1", id)

	require.NoError(t, k.Forget(ctx, "abc"))
	_, fresh, err = k.Reserve(ctx, "abc", "saga-3")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestConnectPings(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	mr.Close()
	_, err = Connect(context.Background(), mr.Addr())
	assert.Error(t, err)
}
