package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/ledger-chess/internal/account"
)

var (
	// ErrConflict means a watched account changed while the transaction ran.
	// Nothing was written.
	ErrConflict = errors.New("ledger: concurrent update, transaction aborted")
	// ErrUndeclaredAccount means a handler touched an account it did not
	// list up front.
	ErrUndeclaredAccount = errors.New("ledger: account not declared by transaction")
)

// Account is a stored record: the program that owns it plus its encoded data.
type Account struct {
	Program account.Address `cbor:"program" json:"program"`
	Data    []byte          `cbor:"data" json:"data"`
}

func (a *Account) clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{Program: a.Program, Data: append([]byte(nil), a.Data...)}
}

// Store persists accounts. Update runs fn against a consistent view of the
// declared keys and commits all of its writes or none of them.
type Store interface {
	Get(ctx context.Context, addr account.Address) (*Account, error)
	Update(ctx context.Context, keys []account.Address, fn func(tx *Txn) error) error
	Close() error
}

// Txn stages reads and writes for one Update call.
type Txn struct {
	declared map[account.Address]struct{}
	load     func(account.Address) (*Account, error)
	cache    map[account.Address]*Account
	writes   map[account.Address]*Account
	order    []account.Address
}

func newTxn(keys []account.Address, load func(account.Address) (*Account, error)) *Txn {
	t := &Txn{
		declared: make(map[account.Address]struct{}, len(keys)),
		load:     load,
		cache:    make(map[account.Address]*Account, len(keys)),
		writes:   make(map[account.Address]*Account),
	}
	for _, k := range keys {
		t.declared[k] = struct{}{}
	}
	return t
}

func (t *Txn) check(addr account.Address) error {
	if _, ok := t.declared[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrUndeclaredAccount, addr)
	}
	return nil
}

// Get returns the staged or stored account, or nil when absent.
func (t *Txn) Get(addr account.Address) (*Account, error) {
	if err := t.check(addr); err != nil {
		return nil, err
	}
	if w, ok := t.writes[addr]; ok {
		return w.clone(), nil
	}
	if c, ok := t.cache[addr]; ok {
		return c.clone(), nil
	}
	a, err := t.load(addr)
	if err != nil {
		return nil, err
	}
	t.cache[addr] = a
	return a.clone(), nil
}

// Put stages a write.
func (t *Txn) Put(addr account.Address, a *Account) error {
	if err := t.check(addr); err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("ledger: nil account for %s", addr)
	}
	t.stage(addr, a.clone())
	return nil
}

// Delete stages removal of an account.
func (t *Txn) Delete(addr account.Address) error {
	if err := t.check(addr); err != nil {
		return err
	}
	t.stage(addr, nil)
	return nil
}

func (t *Txn) stage(addr account.Address, a *Account) {
	if _, ok := t.writes[addr]; !ok {
		t.order = append(t.order, addr)
	}
	t.writes[addr] = a
}

// Writes lists staged writes in first-write order. A nil account is a delete.
func (t *Txn) Writes() []Write {
	out := make([]Write, 0, len(t.order))
	for _, addr := range t.order {
		out = append(out, Write{Address: addr, Account: t.writes[addr]})
	}
	return out
}

type Write struct {
	Address account.Address
	Account *Account
}

func encodeAccount(a *Account) ([]byte, error) { return account.Marshal(a) }

func decodeAccount(raw []byte) (*Account, error) {
	var a Account
	if err := account.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode ledger account: %w", err)
	}
	return &a, nil
}
