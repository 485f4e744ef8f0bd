package orders

import (
	"context"
	"sync"
	"time"
)

// Store keeps orders and checkout snapshots. Orders are keyed by saga id,
// so there is at most one per saga.
type Store interface {
	SaveSnapshot(ctx context.Context, s Snapshot) error
	GetSnapshot(ctx context.Context, sagaID string) (Snapshot, error)

	// Insert stores o as PENDING_PAYMENT. On conflict the existing order
	// is returned with created=false.
	Insert(ctx context.Context, o Order) (stored Order, created bool, err error)

	// Confirm creates o (if absent) and moves it to PENDING_FULFILLMENT with
	// the payment reference, atomically. A confirmed order is returned as is.
	Confirm(ctx context.Context, o Order, paymentTxID string) (stored Order, created bool, err error)

	Transition(ctx context.Context, id string, to Status) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
}

type MemoryStore struct {
	mu        sync.Mutex
	orders    map[string]Order
	snapshots map[string]Snapshot

	// ConfirmErr, when set, is returned by the next Confirm call.
	ConfirmErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: map[string]Order{}, snapshots: map[string]Snapshot{}}
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[s.SagaID]; !ok {
		m.snapshots[s.SagaID] = s
	}
	return nil
}

func (m *MemoryStore) GetSnapshot(_ context.Context, sagaID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[sagaID]
	if !ok {
		return Snapshot{}, ErrSnapshotNotFound
	}
	return s, nil
}

func (m *MemoryStore) Insert(_ context.Context, o Order) (Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.orders[o.ID]; ok {
		return existing, false, nil
	}
	o.Status = StatusPendingPayment
	m.orders[o.ID] = o
	return o, true, nil
}

func (m *MemoryStore) Confirm(_ context.Context, o Order, paymentTxID string) (Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ConfirmErr; err != nil {
		m.ConfirmErr = nil
		return Order{}, false, err
	}
	existing, ok := m.orders[o.ID]
	if ok {
		if existing.Status == StatusPendingFulfillment {
			return existing, false, nil
		}
		if !CanTransition(existing.Status, StatusPendingFulfillment) {
			return existing, false, ErrInvalidTransition
		}
		existing.Status = StatusPendingFulfillment
		existing.PaymentTransactionID = paymentTxID
		existing.UpdatedAt = o.UpdatedAt
		m.orders[o.ID] = existing
		return existing, false, nil
	}
	o.Status = StatusPendingFulfillment
	o.PaymentTransactionID = paymentTxID
	m.orders[o.ID] = o
	return o, true, nil
}

func (m *MemoryStore) Transition(_ context.Context, id string, to Status) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.Status == to {
		return o, nil
	}
	if !CanTransition(o.Status, to) {
		return o, ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	return o, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
