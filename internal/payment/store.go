package payment

import (
	"context"
	"sync"
)

// Store persists transactions. Insert must keep at most one row per saga:
// on conflict it returns the stored transaction and created=false.
type Store interface {
	Insert(ctx context.Context, tx Transaction) (stored Transaction, created bool, err error)
	GetBySaga(ctx context.Context, sagaID string) (Transaction, error)
}

type MemoryStore struct {
	mu     sync.Mutex
	bySaga map[string]Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySaga: map[string]Transaction{}}
}

func (m *MemoryStore) Insert(_ context.Context, tx Transaction) (Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.bySaga[tx.SagaID]; ok {
		return existing, false, nil
	}
	m.bySaga[tx.SagaID] = tx
	return tx, true, nil
}

func (m *MemoryStore) GetBySaga(_ context.Context, sagaID string) (Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.bySaga[sagaID]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return tx, nil
}

func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bySaga)
}
