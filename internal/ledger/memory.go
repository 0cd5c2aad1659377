package ledger

import (
	"context"
	"sync"

	"github.com/park285/ledger-chess/internal/account"
)

// memstore is an in-process Store used by tests and by the node when no
// Redis URL is configured. Update holds the lock for the whole transaction,
// so transactions are strictly serialized.
type memstore struct {
	mu       sync.Mutex
	accounts map[account.Address]*Account
}

func NewMemoryStore() Store {
	return &memstore{accounts: make(map[account.Address]*Account)}
}

func (m *memstore) Get(ctx context.Context, addr account.Address) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[addr].clone(), nil
}

func (m *memstore) Update(ctx context.Context, keys []account.Address, fn func(tx *Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := newTxn(keys, func(addr account.Address) (*Account, error) {
		return m.accounts[addr].clone(), nil
	})
	if err := fn(tx); err != nil {
		return err
	}
	for _, w := range tx.Writes() {
		if w.Account == nil {
			delete(m.accounts, w.Address)
			continue
		}
		m.accounts[w.Address] = w.Account
	}
	return nil
}

func (m *memstore) Close() error { return nil }
