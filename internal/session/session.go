// Package session is the delegation program. A wallet (the authority) grants
// a short-lived key (the session signer) the right to act for it against one
// target program until a deadline.
package session

import (
	"fmt"
	"time"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/ledger"
	"github.com/park285/ledger-chess/internal/obslog"
	"github.com/park285/ledger-chess/internal/runtime"
	"go.uber.org/zap"
)

var (
	ErrAlreadyInitialized = runtime.NewError("AlreadyInitialized", "session token already exists")
	ErrUnauthorized       = runtime.NewError("Unauthorized", "authority and session signer must both sign")
	ErrInvalidArgument    = runtime.NewError("InvalidArgument", "invalid session parameters")
	ErrAccountNotFound    = runtime.NewError("AccountNotFound", "session token not found")
)

// Instruction is a tagged union; exactly one field is set.
type Instruction struct {
	Create *Create `cbor:"create,omitempty" json:"create,omitempty"`
	Revoke *Revoke `cbor:"revoke,omitempty" json:"revoke,omitempty"`
}

type Create struct {
	Authority     account.Address `cbor:"authority" json:"authority"`
	SessionSigner account.Address `cbor:"signer" json:"session_signer"`
	TargetProgram account.Address `cbor:"target" json:"target_program"`
	// ValidUntil in unix seconds; nil means now plus the default TTL.
	ValidUntil *int64 `cbor:"valid_until,omitempty" json:"valid_until,omitempty"`
}

type Revoke struct {
	Authority     account.Address `cbor:"authority" json:"authority"`
	SessionSigner account.Address `cbor:"signer" json:"session_signer"`
	TargetProgram account.Address `cbor:"target" json:"target_program"`
}

type Options struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
}

type Program struct {
	id   account.Address
	opts Options
}

func New(id account.Address, opts Options) *Program {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	if opts.MaxTTL <= 0 {
		opts.MaxTTL = 7 * 24 * time.Hour
	}
	return &Program{id: id, opts: opts}
}

func (p *Program) ID() account.Address { return p.id }

// TokenAddress is where the token for (target, signer, authority) lives.
func (p *Program) TokenAddress(target, signer, authority account.Address) account.Address {
	return account.SessionTokenAddress(p.id, target, signer, authority)
}

func (p *Program) Prepare(call *runtime.Call) (*runtime.Plan, error) {
	var ix Instruction
	if err := account.Unmarshal(call.Data, &ix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	switch {
	case ix.Create != nil && ix.Revoke == nil:
		return p.create(call, ix.Create)
	case ix.Revoke != nil && ix.Create == nil:
		return p.revoke(call, ix.Revoke)
	}
	return nil, fmt.Errorf("%w: expected exactly one of create or revoke", ErrInvalidArgument)
}

func (p *Program) create(call *runtime.Call, c *Create) (*runtime.Plan, error) {
	if !call.Signed(c.Authority) || !call.Signed(c.SessionSigner) {
		return nil, ErrUnauthorized
	}
	now := call.Now
	until := now.Add(p.opts.DefaultTTL).Unix()
	if c.ValidUntil != nil {
		until = *c.ValidUntil
	}
	if until <= now.Unix() {
		return nil, fmt.Errorf("%w: valid_until %d is not in the future", ErrInvalidArgument, until)
	}
	if until > now.Add(p.opts.MaxTTL).Unix() {
		return nil, fmt.Errorf("%w: valid_until exceeds the %s limit", ErrInvalidArgument, p.opts.MaxTTL)
	}

	addr := p.TokenAddress(c.TargetProgram, c.SessionSigner, c.Authority)
	token := &account.SessionToken{
		Authority:     c.Authority,
		TargetProgram: c.TargetProgram,
		SessionSigner: c.SessionSigner,
		ValidUntil:    until,
	}
	return &runtime.Plan{
		Accounts: []account.Address{addr},
		Execute: func(tx *ledger.Txn) error {
			existing, err := tx.Get(addr)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: %s", ErrAlreadyInitialized, addr)
			}
			data, err := account.EncodeSessionToken(token)
			if err != nil {
				return err
			}
			if err := tx.Put(addr, &ledger.Account{Program: p.id, Data: data}); err != nil {
				return err
			}
			obslog.L().Info("session_created",
				zap.String("token", addr.String()),
				zap.String("authority", c.Authority.String()),
				zap.String("signer", c.SessionSigner.String()),
				zap.Int64("valid_until", until),
			)
			return nil
		},
	}, nil
}

func (p *Program) revoke(call *runtime.Call, r *Revoke) (*runtime.Plan, error) {
	if !call.Signed(r.Authority) {
		return nil, fmt.Errorf("%w: authority must sign revocation", ErrUnauthorized)
	}
	addr := p.TokenAddress(r.TargetProgram, r.SessionSigner, r.Authority)
	return &runtime.Plan{
		Accounts: []account.Address{addr},
		Execute: func(tx *ledger.Txn) error {
			acct, err := tx.Get(addr)
			if err != nil {
				return err
			}
			if acct == nil || acct.Program != p.id {
				return fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
			}
			if err := tx.Delete(addr); err != nil {
				return err
			}
			obslog.L().Info("session_revoked", zap.String("token", addr.String()))
			return nil
		},
	}, nil
}
