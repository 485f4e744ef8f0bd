package refund

import (
	"context"
	"sync"
)

// Store keeps refund attempts. There is at most one COMPLETED refund per
// saga and at most one attempt per command id: inserting a duplicate
// returns the stored attempt with created=false.
type Store interface {
	Insert(ctx context.Context, r Refund) (stored Refund, created bool, err error)
	// GetBySaga returns the COMPLETED refund if there is one, else the
	// latest attempt.
	GetBySaga(ctx context.Context, sagaID string) (Refund, error)
	GetByCommand(ctx context.Context, commandID string) (Refund, error)
}

type MemoryStore struct {
	mu        sync.Mutex
	bySaga    map[string][]Refund
	byCommand map[string]Refund
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bySaga: map[string][]Refund{}, byCommand: map[string]Refund{}}
}

func (m *MemoryStore) Insert(_ context.Context, r Refund) (Refund, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.CommandID != "" {
		if prev, ok := m.byCommand[r.CommandID]; ok {
			return prev, false, nil
		}
	}
	if r.Completed() {
		if done, ok := completed(m.bySaga[r.SagaID]); ok {
			return done, false, nil
		}
	}
	m.bySaga[r.SagaID] = append(m.bySaga[r.SagaID], r)
	if r.CommandID != "" {
		m.byCommand[r.CommandID] = r
	}
	return r, true, nil
}

func (m *MemoryStore) GetByCommand(_ context.Context, commandID string) (Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byCommand[commandID]
	if !ok {
		return Refund{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) GetBySaga(_ context.Context, sagaID string) (Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attempts := m.bySaga[sagaID]
	if len(attempts) == 0 {
		return Refund{}, ErrNotFound
	}
	if done, ok := completed(attempts); ok {
		return done, nil
	}
	return attempts[len(attempts)-1], nil
}

// Attempts returns every attempt recorded for sagaID, oldest first.
func (m *MemoryStore) Attempts(sagaID string) []Refund {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Refund(nil), m.bySaga[sagaID]...)
}

func completed(attempts []Refund) (Refund, bool) {
	for _, r := range attempts {
		if r.Completed() {
			return r, true
		}
	}
	return Refund{}, false
}
