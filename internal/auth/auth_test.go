package auth

import (
	"testing"
	"time"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/ledger"
)

var (
	chessProg   = account.ProgramID("auth-test-chess")
	sessionProg = account.ProgramID("auth-test-session")
	owner       = account.Address{1}
	delegate    = account.Address{2}
	stranger    = account.Address{3}
	now         = time.Unix(1_700_000_000, 0)
)

func signedBy(addrs ...account.Address) func(account.Address) bool {
	return func(a account.Address) bool {
		for _, s := range addrs {
			if s == a {
				return true
			}
		}
		return false
	}
}

func tokenAccount(t *testing.T, tok account.SessionToken) *ledger.Account {
	t.Helper()
	data, err := account.EncodeSessionToken(&tok)
	if err != nil {
		t.Fatalf("EncodeSessionToken: %v", err)
	}
	return &ledger.Account{Program: sessionProg, Data: data}
}

func baseRequest() Request {
	return Request{
		Program:        chessProg,
		SessionProgram: sessionProg,
		ClaimedUser:    account.UserAddress(chessProg, owner),
		User:           &account.User{Owner: owner},
		Now:            now,
	}
}

func TestDirect(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
		want   Verdict
	}{
		{"owner signed", func(r *Request) {}, Authorized},
		{"not signed", func(r *Request) { r.Signed = signedBy() }, Unauthorized},
		{"someone else's user", func(r *Request) {
			r.Proof = DirectSignature{Signer: stranger}
			r.Signed = signedBy(stranger)
		}, Unauthorized},
		{"missing user record", func(r *Request) { r.User = nil }, Unauthorized},
		{"owner mismatch", func(r *Request) { r.User = &account.User{Owner: stranger} }, Unauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			req.Proof = DirectSignature{Signer: owner}
			req.Signed = signedBy(owner)
			tc.mutate(&req)
			if got := Resolve(req); got != tc.want {
				t.Fatalf("Resolve = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDelegated(t *testing.T) {
	validTok := account.SessionToken{Authority: owner, TargetProgram: chessProg, SessionSigner: delegate, ValidUntil: now.Unix() + 60}
	tokAddr := account.SessionTokenAddress(sessionProg, chessProg, delegate, owner)

	cases := []struct {
		name   string
		mutate func(t *testing.T, r *Request, p *DelegatedCredential)
		want   Verdict
	}{
		{"valid", func(*testing.T, *Request, *DelegatedCredential) {}, Authorized},
		{"token missing", func(_ *testing.T, _ *Request, p *DelegatedCredential) { p.Token = nil }, InvalidToken},
		{"token not owned by session program", func(_ *testing.T, _ *Request, p *DelegatedCredential) {
			p.Token = &ledger.Account{Program: chessProg, Data: p.Token.Data}
		}, InvalidToken},
		{"garbage token data", func(_ *testing.T, _ *Request, p *DelegatedCredential) {
			p.Token = &ledger.Account{Program: sessionProg, Data: []byte{9, 9}}
		}, InvalidToken},
		{"authority is not the claimed user's owner", func(t *testing.T, _ *Request, p *DelegatedCredential) {
			tok := validTok
			tok.Authority = stranger
			p.Token = tokenAccount(t, tok)
			p.TokenAddress = account.SessionTokenAddress(sessionProg, chessProg, delegate, stranger)
		}, InvalidToken},
		{"token for another program", func(t *testing.T, _ *Request, p *DelegatedCredential) {
			other := account.ProgramID("elsewhere")
			tok := validTok
			tok.TargetProgram = other
			p.Token = tokenAccount(t, tok)
			p.TokenAddress = account.SessionTokenAddress(sessionProg, other, delegate, owner)
		}, InvalidToken},
		{"token presented at the wrong address", func(_ *testing.T, _ *Request, p *DelegatedCredential) {
			p.TokenAddress = account.Address{0xee}
		}, InvalidToken},
		{"expired exactly at deadline", func(_ *testing.T, r *Request, _ *DelegatedCredential) {
			r.Now = time.Unix(validTok.ValidUntil, 0)
		}, InvalidToken},
		{"signer is not the session signer", func(_ *testing.T, r *Request, p *DelegatedCredential) {
			p.Signer = stranger
			r.Signed = signedBy(stranger)
		}, InvalidToken},
		{"session signer did not sign", func(_ *testing.T, r *Request, _ *DelegatedCredential) {
			r.Signed = signedBy(owner)
		}, InvalidToken},
		{"claimed user differs", func(_ *testing.T, r *Request, _ *DelegatedCredential) {
			r.ClaimedUser = account.UserAddress(chessProg, stranger)
		}, InvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			req.Signed = signedBy(delegate)
			p := DelegatedCredential{Signer: delegate, TokenAddress: tokAddr, Token: tokenAccount(t, validTok)}
			tc.mutate(t, &req, &p)
			req.Proof = p
			if got := Resolve(req); got != tc.want {
				t.Fatalf("Resolve = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestNoProofIsUnauthorized(t *testing.T) {
	if got := Resolve(baseRequest()); got != Unauthorized {
		t.Fatalf("Resolve = %s", got)
	}
}
