package wallet

import (
	"context"
	"sync"
)

// Mutation computes the next wallet state and the ledger entry for it.
type Mutation func(w Wallet) (Wallet, Transaction)

// Store applies mutations under per-user mutual exclusion.
type Store interface {
	// Apply loads (creating at zero if needed) and locks the wallet of
	// userID, then runs m. When e carries a reference id that already has a
	// SUCCESS entry of the same type, that entry is returned and m is not
	// run. FAILED entries are recorded without touching the balance.
	Apply(ctx context.Context, userID string, e Entry, m Mutation) (Transaction, error)
	Wallet(ctx context.Context, userID string) (Wallet, error)
	History(ctx context.Context, userID string, limit int) ([]Transaction, error)
}

type MemoryStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	wallets map[string]Wallet
	txs     map[string][]Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:   map[string]*sync.Mutex{},
		wallets: map[string]Wallet{},
		txs:     map[string][]Transaction{},
	}
}

func (m *MemoryStore) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

func (m *MemoryStore) Apply(_ context.Context, userID string, e Entry, fn Mutation) (Transaction, error) {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	w, ok := m.wallets[userID]
	if !ok {
		w = Wallet{UserID: userID, UpdatedAt: e.At}
		m.wallets[userID] = w
	}
	if e.ReferenceID != "" {
		for _, tx := range m.txs[userID] {
			if tx.ReferenceID == e.ReferenceID && tx.Type == e.Type && tx.Status == TxSuccess {
				m.mu.Unlock()
				return tx, nil
			}
		}
	}
	m.mu.Unlock()

	next, tx := fn(w)

	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.Status == TxSuccess {
		m.wallets[userID] = next
	}
	m.txs[userID] = append(m.txs[userID], tx)
	return tx, nil
}

func (m *MemoryStore) Wallet(_ context.Context, userID string) (Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[userID]
	if !ok {
		w = Wallet{UserID: userID}
		m.wallets[userID] = w
	}
	return w, nil
}

// History is newest first.
func (m *MemoryStore) History(_ context.Context, userID string, limit int) ([]Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.txs[userID]
	out := make([]Transaction, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}
