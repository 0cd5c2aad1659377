// Package program is the on-ledger chess program: user and game records,
// seat assignment, move validation through the engine, and wager escrow.
package program

import (
	"context"
	"fmt"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/auth"
	"github.com/park285/ledger-chess/internal/ledger"
	"github.com/park285/ledger-chess/internal/obslog"
	"github.com/park285/ledger-chess/internal/runtime"
	"go.uber.org/zap"
)

// ResultSink receives finished games after their transaction commits.
type ResultSink interface {
	SaveResult(ctx context.Context, addr account.Address, g *account.Game) error
}

type Program struct {
	id        account.Address
	sessionID account.Address
	sink      ResultSink
}

func New(id, sessionProgram account.Address) *Program {
	return &Program{id: id, sessionID: sessionProgram}
}

// AttachArchive registers a sink for finished games. Nil detaches.
func (p *Program) AttachArchive(s ResultSink) { p.sink = s }

func (p *Program) ID() account.Address { return p.id }

func (p *Program) UserAddress(owner account.Address) account.Address {
	return account.UserAddress(p.id, owner)
}

func (p *Program) GameAddress(user account.Address, seq uint64) account.Address {
	return account.GameAddress(p.id, user, seq)
}

// invocation carries per-transaction state into a handler.
type invocation struct {
	p    *Program
	call *runtime.Call
	tx   *ledger.Txn

	// finished is set when the handler ended a game.
	finished   *account.Game
	finishedAt account.Address
}

type handler func(inv *invocation) error

func (p *Program) Prepare(call *runtime.Call) (*runtime.Plan, error) {
	var ix Instruction
	if err := account.Unmarshal(call.Data, &ix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if ix.count() != 1 {
		return nil, fmt.Errorf("%w: expected exactly one instruction, got %d", ErrInvalidArgument, ix.count())
	}
	keys, run := p.route(&ix)

	inv := &invocation{p: p, call: call}
	plan := &runtime.Plan{
		Accounts: keys,
		Execute: func(tx *ledger.Txn) error {
			inv.tx = tx
			inv.finished = nil
			err := run(inv)
			if err != nil {
				obslog.L().Debug("instruction_rejected",
					zap.String("ix", ix.Name()),
					zap.String("payer", call.Payer.String()),
					zap.Error(err),
				)
			}
			return err
		},
	}
	plan.Committed = func(ctx context.Context) { p.archive(ctx, inv) }
	return plan, nil
}

func withToken(keys []account.Address, token *account.Address) []account.Address {
	if token != nil {
		keys = append(keys, *token)
	}
	return keys
}

func (p *Program) route(ix *Instruction) ([]account.Address, handler) {
	switch {
	case ix.InitializeUser != nil:
		i := ix.InitializeUser
		return []account.Address{i.User}, func(inv *invocation) error { return inv.initializeUser(i) }
	case ix.InitializeGame != nil:
		i := ix.InitializeGame
		return withToken([]account.Address{i.User, i.Game}, i.SessionToken), func(inv *invocation) error { return inv.initializeGame(i) }
	case ix.JoinGame != nil:
		i := ix.JoinGame
		return withToken([]account.Address{i.User, i.Game}, i.SessionToken), func(inv *invocation) error { return inv.joinGame(i) }
	case ix.MovePiece != nil:
		i := ix.MovePiece
		return withToken([]account.Address{i.User, i.AdversaryUser, i.Game}, i.SessionToken), func(inv *invocation) error { return inv.movePiece(i) }
	case ix.Resign != nil:
		i := ix.Resign
		return withToken([]account.Address{i.User, i.AdversaryUser, i.Game}, i.SessionToken), func(inv *invocation) error { return inv.resign(i) }
	case ix.OfferDraw != nil:
		i := ix.OfferDraw
		return withToken([]account.Address{i.User, i.Game}, i.SessionToken), func(inv *invocation) error { return inv.offerDraw(i) }
	case ix.AcceptDraw != nil:
		i := ix.AcceptDraw
		return withToken([]account.Address{i.User, i.AdversaryUser, i.Game}, i.SessionToken), func(inv *invocation) error { return inv.acceptDraw(i) }
	case ix.Deposit != nil:
		i := ix.Deposit
		return []account.Address{i.User}, func(inv *invocation) error { return inv.deposit(i) }
	default:
		i := ix.Withdraw
		return []account.Address{i.User}, func(inv *invocation) error { return inv.withdraw(i) }
	}
}

func (p *Program) archive(ctx context.Context, inv *invocation) {
	if inv.finished == nil || p.sink == nil {
		return
	}
	if err := p.sink.SaveResult(ctx, inv.finishedAt, inv.finished); err != nil {
		obslog.L().Warn("archive_save_failed", zap.String("game", inv.finishedAt.String()), zap.Error(err))
	}
}

// findUser returns nil when no record exists at addr.
func (inv *invocation) findUser(addr account.Address) (*account.User, error) {
	acct, err := inv.tx.Get(addr)
	if err != nil || acct == nil {
		return nil, err
	}
	if acct.Program != inv.p.id {
		return nil, fmt.Errorf("%w: %s is not a user record", ErrAccountMismatch, addr)
	}
	u, err := account.DecodeUser(acct.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAccountMismatch, addr, err)
	}
	return u, nil
}

func (inv *invocation) mustUser(addr account.Address) (*account.User, error) {
	u, err := inv.findUser(addr)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: user %s", ErrAccountNotFound, addr)
	}
	return u, nil
}

func (inv *invocation) loadGame(addr account.Address) (*account.Game, error) {
	acct, err := inv.tx.Get(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: game %s", ErrAccountNotFound, addr)
	}
	if acct.Program != inv.p.id {
		return nil, fmt.Errorf("%w: %s is not a game record", ErrAccountMismatch, addr)
	}
	g, err := account.DecodeGame(acct.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAccountMismatch, addr, err)
	}
	return g, nil
}

func (inv *invocation) putUser(addr account.Address, u *account.User) error {
	data, err := account.EncodeUser(u)
	if err != nil {
		return err
	}
	return inv.tx.Put(addr, &ledger.Account{Program: inv.p.id, Data: data})
}

func (inv *invocation) putGame(addr account.Address, g *account.Game) error {
	data, err := account.EncodeGame(g)
	if err != nil {
		return err
	}
	return inv.tx.Put(addr, &ledger.Account{Program: inv.p.id, Data: data})
}

// authorize checks that the payer may act for the user at addr, directly or
// through the session token at token.
func (inv *invocation) authorize(addr account.Address, u *account.User, token *account.Address) error {
	req := auth.Request{
		Program:        inv.p.id,
		SessionProgram: inv.p.sessionID,
		ClaimedUser:    addr,
		User:           u,
		Signed:         inv.call.Signed,
		Now:            inv.call.Now,
		Proof:          auth.DirectSignature{Signer: inv.call.Payer},
	}
	if token != nil {
		acct, err := inv.tx.Get(*token)
		if err != nil {
			return err
		}
		req.Proof = auth.DelegatedCredential{Signer: inv.call.Payer, TokenAddress: *token, Token: acct}
	}
	switch v := auth.Resolve(req); v {
	case auth.Authorized:
		return nil
	case auth.InvalidToken:
		return fmt.Errorf("%w: payer %s for user %s", ErrInvalidToken, inv.call.Payer, addr)
	default:
		return fmt.Errorf("%w: payer %s for user %s", ErrUnauthorized, inv.call.Payer, addr)
	}
}
