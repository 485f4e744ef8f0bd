package compensation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StatePaid               State = "PAID"
	StatePaymentFailed      State = "PAYMENT_FAILED"
	StateOrderCreated       State = "ORDER_CREATED"
	StateCompensating       State = "COMPENSATING"
	StateCompensated        State = "COMPENSATED"
	StateCompensationFailed State = "COMPENSATION_FAILED"
)

var ErrNotFound = errors.New("saga record not found")

var validNext = map[State]map[State]bool{
	StatePaid:               {StateOrderCreated: true, StateCompensating: true},
	StateCompensating:       {StateCompensated: true, StateCompensationFailed: true},
	StatePaymentFailed:      {},
	StateOrderCreated:       {},
	StateCompensated:        {},
	StateCompensationFailed: {StateCompensated: true}, // an operator retry refunded it
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}

// Terminal reports whether the saga has reached one of its end states.
// COMPENSATION_FAILED is terminal but may still become COMPENSATED.
func (s State) Terminal() bool {
	switch s {
	case StatePaymentFailed, StateOrderCreated, StateCompensated, StateCompensationFailed:
		return true
	}
	return false
}

// Record is what the tracker knows about one saga.
type Record struct {
	SagaID               string          `json:"saga_id"`
	UserID               string          `json:"user_id"`
	Amount               decimal.Decimal `json:"amount"`
	PaymentTransactionID string          `json:"payment_transaction_id,omitempty"`
	State                State           `json:"state"`
	Reason               string          `json:"reason,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type Store interface {
	Get(ctx context.Context, sagaID string) (Record, error)
	Put(ctx context.Context, r Record) error
}

type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (m *MemoryStore) Get(_ context.Context, sagaID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[sagaID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) Put(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.SagaID] = r
	return nil
}
