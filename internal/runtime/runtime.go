package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/ledger"
	"github.com/park285/ledger-chess/internal/obslog"
	"go.uber.org/zap"
)

// Clock supplies the ledger time handed to programs.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

// ManualClock is a settable clock for tests and replays.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewManualClock(t time.Time) *ManualClock { return &ManualClock{t: t} }

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Call is one verified instruction as a program sees it.
type Call struct {
	Program account.Address
	Payer   account.Address
	Data    []byte
	Now     time.Time
	signers map[account.Address]struct{}
}

// Signed reports whether addr signed the transaction.
func (c *Call) Signed(addr account.Address) bool {
	_, ok := c.signers[addr]
	return ok
}

// Plan is what a program intends to do: the accounts it will touch and the
// function that reads and writes them inside one atomic update.
type Plan struct {
	Accounts []account.Address
	Execute  func(tx *ledger.Txn) error
	// Committed runs after a successful commit. Failures there are the
	// program's to log; the ledger is already final.
	Committed func(ctx context.Context)
}

// Program handles the instructions addressed to its ID.
type Program interface {
	ID() account.Address
	Prepare(call *Call) (*Plan, error)
}

// Receipt describes a committed transaction.
type Receipt struct {
	ID      string            `json:"id"`
	Program account.Address   `json:"program"`
	Payer   account.Address   `json:"payer"`
	Writes  []account.Address `json:"writes"`
	Time    int64             `json:"time"`
}

// Runtime verifies, routes and commits transactions.
type Runtime struct {
	store ledger.Store
	clock Clock

	mu       sync.RWMutex
	programs map[account.Address]Program
}

func New(store ledger.Store, clock Clock, programs ...Program) *Runtime {
	if clock == nil {
		clock = SystemClock
	}
	r := &Runtime{store: store, clock: clock, programs: make(map[account.Address]Program)}
	for _, p := range programs {
		r.Register(p)
	}
	return r
}

func (r *Runtime) Register(p Program) {
	r.mu.Lock()
	r.programs[p.ID()] = p
	r.mu.Unlock()
}

func (r *Runtime) Clock() Clock { return r.clock }

// Account reads a committed account; nil when absent.
func (r *Runtime) Account(ctx context.Context, addr account.Address) (*ledger.Account, error) {
	return r.store.Get(ctx, addr)
}

// Submit verifies tx, runs its program and commits the result atomically.
// Any error leaves the ledger untouched.
func (r *Runtime) Submit(ctx context.Context, tx *Transaction) (*Receipt, error) {
	if tx == nil {
		return nil, ErrMalformed
	}
	signers, err := tx.verify()
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	prog, ok := r.programs[tx.Message.Program]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, tx.Message.Program)
	}

	now := r.clock.Now()
	call := &Call{
		Program: tx.Message.Program,
		Payer:   tx.Message.Payer,
		Data:    tx.Message.Instruction,
		Now:     now,
		signers: signers,
	}
	plan, err := prog.Prepare(call)
	if err != nil {
		return nil, err
	}

	var writes []account.Address
	err = r.store.Update(ctx, plan.Accounts, func(t *ledger.Txn) error {
		if err := plan.Execute(t); err != nil {
			return err
		}
		for _, w := range t.Writes() {
			writes = append(writes, w.Address)
		}
		return nil
	})
	if errors.Is(err, ledger.ErrConflict) {
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err != nil {
		obslog.L().Debug("tx_rejected",
			zap.String("tx", tx.ID()),
			zap.String("program", call.Program.String()),
			zap.String("code", CodeOf(err)),
			zap.Error(err),
		)
		return nil, err
	}

	rec := &Receipt{ID: tx.ID(), Program: call.Program, Payer: call.Payer, Writes: writes, Time: now.Unix()}
	obslog.L().Info("tx_committed",
		zap.String("tx", rec.ID),
		zap.String("program", rec.Program.String()),
		zap.Int("writes", len(writes)),
	)
	if plan.Committed != nil {
		plan.Committed(ctx)
	}
	return rec, nil
}
