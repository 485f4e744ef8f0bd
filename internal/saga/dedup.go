package saga

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type ClaimResult int

const (
	Claimed  ClaimResult = iota // caller owns processing
	Done                        // already processed, skip
	InFlight                    // someone else is processing, retry later
)

// Dedup records which (saga, event type) pairs a component has applied.
type Dedup interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (ClaimResult, error)
	Complete(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

// DedupKey = component:saga_id:event_type
func DedupKey(component string, env Envelope) string {
	return fmt.Sprintf("%s:%s:%s", component, env.SagaID, env.Type)
}

// MemoryDedup is a process-local Dedup.
type MemoryDedup struct {
	mu    sync.Mutex
	state map[string]memClaim
	now   func() time.Time
}

type memClaim struct {
	done    bool
	expires time.Time
}

func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{state: map[string]memClaim{}, now: time.Now}
}

func (d *MemoryDedup) Claim(_ context.Context, key string, ttl time.Duration) (ClaimResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.state[key]; ok {
		if c.done {
			return Done, nil
		}
		if d.now().Before(c.expires) {
			return InFlight, nil
		}
	}
	d.state[key] = memClaim{expires: d.now().Add(ttl)}
	return Claimed, nil
}

func (d *MemoryDedup) Complete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state[key] = memClaim{done: true}
	return nil
}

func (d *MemoryDedup) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.state, key)
	return nil
}
