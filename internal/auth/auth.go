// Package auth decides whether a transaction signer may act for a User
// record, either directly as its owner or through a session token.
package auth

import (
	"time"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/ledger"
)

type Verdict int

const (
	Authorized Verdict = iota
	Unauthorized
	InvalidToken
)

func (v Verdict) String() string {
	switch v {
	case Authorized:
		return "authorized"
	case InvalidToken:
		return "invalid_token"
	}
	return "unauthorized"
}

// Proof is DirectSignature or DelegatedCredential.
type Proof interface{ proof() }

// DirectSignature claims the signer owns the user record.
type DirectSignature struct {
	Signer account.Address
}

// DelegatedCredential claims the signer holds a session token issued by the
// user's owner. Token is the account found at TokenAddress, nil if none.
type DelegatedCredential struct {
	Signer       account.Address
	TokenAddress account.Address
	Token        *ledger.Account
}

func (DirectSignature) proof()     {}
func (DelegatedCredential) proof() {}

type Request struct {
	// Program is the program asking; tokens must target it.
	Program        account.Address
	SessionProgram account.Address
	ClaimedUser    account.Address
	// User is the stored record at ClaimedUser, nil if absent.
	User   *account.User
	Proof  Proof
	Signed func(account.Address) bool
	Now    time.Time
}

// Resolve has no side effects. A delegated proof never yields Unauthorized:
// every failure on that path is InvalidToken.
func Resolve(req Request) Verdict {
	switch p := req.Proof.(type) {
	case DirectSignature:
		return direct(req, p)
	case DelegatedCredential:
		return delegated(req, p)
	}
	return Unauthorized
}

func direct(req Request, p DirectSignature) Verdict {
	if !signed(req, p.Signer) {
		return Unauthorized
	}
	if req.ClaimedUser != account.UserAddress(req.Program, p.Signer) {
		return Unauthorized
	}
	if req.User == nil || req.User.Owner != p.Signer {
		return Unauthorized
	}
	return Authorized
}

func delegated(req Request, p DelegatedCredential) Verdict {
	if p.Token == nil || p.Token.Program != req.SessionProgram {
		return InvalidToken
	}
	tok, err := account.DecodeSessionToken(p.Token.Data)
	if err != nil {
		return InvalidToken
	}
	if req.ClaimedUser != account.UserAddress(req.Program, tok.Authority) {
		return InvalidToken
	}
	if req.User == nil || req.User.Owner != tok.Authority {
		return InvalidToken
	}
	want := account.SessionTokenAddress(req.SessionProgram, req.Program, p.Signer, tok.Authority)
	if p.TokenAddress != want || tok.TargetProgram != req.Program {
		return InvalidToken
	}
	if req.Now.Unix() >= tok.ValidUntil {
		return InvalidToken
	}
	if tok.SessionSigner != p.Signer || !signed(req, p.Signer) {
		return InvalidToken
	}
	return Authorized
}

func signed(req Request, a account.Address) bool {
	return req.Signed != nil && req.Signed(a)
}
