package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-checkout-saga/internal/saga"
)

const (
	markerProcessing = "processing"
	markerDone       = "done"
)

// claimScript returns 0 when the caller takes the claim, 1 when the key is
// already done and 2 while another worker holds it.
var claimScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v == ARGV[2] then return 1 end
if v then return 2 end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 0
`)

// Dedup is the shared saga.Dedup backed by Redis, so every replica of a
// component sees the same markers.
type Dedup struct {
	RDB *redis.Client
}

func (d *Dedup) Claim(ctx context.Context, key string, ttl time.Duration) (saga.ClaimResult, error) {
	res, err := claimScript.Run(ctx, d.RDB, []string{fmt.Sprintf(KeyDedup, key)},
		markerProcessing, markerDone, ttl.Milliseconds()).Int()
	if err != nil {
		return 0, err
	}
	switch res {
	case 0:
		return saga.Claimed, nil
	case 1:
		return saga.Done, nil
	default:
		return saga.InFlight, nil
	}
}

func (d *Dedup) Complete(ctx context.Context, key string) error {
	return d.RDB.Set(ctx, fmt.Sprintf(KeyDedup, key), markerDone, TTLDedup).Err()
}

func (d *Dedup) Release(ctx context.Context, key string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, key)).Err()
}
