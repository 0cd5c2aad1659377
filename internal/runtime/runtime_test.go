package runtime

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/ledger"
)

// counter increments a single account per call; it fails on demand.
type counter struct {
	id   account.Address
	slot account.Address
	hits int
}

type bump struct {
	By   uint64 `cbor:"by"`
	Fail bool   `cbor:"fail"`
}

func (c *counter) ID() account.Address { return c.id }

func (c *counter) Prepare(call *Call) (*Plan, error) {
	var ix bump
	if err := account.Unmarshal(call.Data, &ix); err != nil {
		return nil, err
	}
	return &Plan{
		Accounts: []account.Address{c.slot},
		Execute: func(tx *ledger.Txn) error {
			if err := tx.Put(c.slot, &ledger.Account{Program: c.id, Data: []byte{byte(ix.By)}}); err != nil {
				return err
			}
			if ix.Fail {
				return NewError("Boom", "requested failure")
			}
			return nil
		},
		Committed: func(context.Context) { c.hits++ },
	}, nil
}

func key(seed byte) ed25519.PrivateKey {
	s := make([]byte, ed25519.SeedSize)
	s[0] = seed
	return ed25519.NewKeyFromSeed(s)
}

func setup(t *testing.T) (*Runtime, *counter) {
	t.Helper()
	c := &counter{id: account.ProgramID("counter"), slot: account.Address{0xc}}
	return New(ledger.NewMemoryStore(), NewManualClock(time.Unix(100, 0)), c), c
}

func TestSubmitCommits(t *testing.T) {
	rt, c := setup(t)
	k := key(1)
	tx, err := NewTransaction(c.id, PublicAddress(k), bump{By: 7}, 1)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	if err := tx.Sign(k); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	rec, err := rt.Submit(context.Background(), tx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rec.ID == "" || rec.ID != tx.ID() || rec.Time != 100 {
		t.Fatalf("unexpected receipt %+v", rec)
	}
	if len(rec.Writes) != 1 || rec.Writes[0] != c.slot {
		t.Fatalf("writes = %v", rec.Writes)
	}
	if c.hits != 1 {
		t.Fatalf("commit hook ran %d times", c.hits)
	}
	acct, _ := rt.Account(context.Background(), c.slot)
	if acct == nil || acct.Data[0] != 7 {
		t.Fatalf("account = %+v", acct)
	}
}

func TestSubmitFailureWritesNothing(t *testing.T) {
	rt, c := setup(t)
	k := key(1)
	tx, _ := NewTransaction(c.id, PublicAddress(k), bump{By: 7, Fail: true}, 1)
	_ = tx.Sign(k)
	_, err := rt.Submit(context.Background(), tx)
	if CodeOf(err) != "Boom" {
		t.Fatalf("expected Boom, got %v", err)
	}
	if acct, _ := rt.Account(context.Background(), c.slot); acct != nil {
		t.Fatalf("failed transaction wrote %+v", acct)
	}
	if c.hits != 0 {
		t.Fatalf("commit hook ran for a failed transaction")
	}
}

func TestSignatureChecks(t *testing.T) {
	rt, c := setup(t)
	payer, other := key(1), key(2)

	unsigned, _ := NewTransaction(c.id, PublicAddress(payer), bump{By: 1}, 1)
	_, err := rt.Submit(context.Background(), unsigned)
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected MissingSignature, got %v", err)
	}

	wrongSigner, _ := NewTransaction(c.id, PublicAddress(payer), bump{By: 1}, 2)
	_ = wrongSigner.Sign(other)
	_, err = rt.Submit(context.Background(), wrongSigner)
	if !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected MissingSignature, got %v", err)
	}

	tampered, _ := NewTransaction(c.id, PublicAddress(payer), bump{By: 1}, 3)
	_ = tampered.Sign(payer)
	tampered.Message.Nonce = 4
	_, err = rt.Submit(context.Background(), tampered)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected BadSignature, got %v", err)
	}
}

func TestUnknownProgram(t *testing.T) {
	rt, _ := setup(t)
	k := key(1)
	tx, _ := NewTransaction(account.ProgramID("nope"), PublicAddress(k), bump{}, 1)
	_ = tx.Sign(k)
	_, err := rt.Submit(context.Background(), tx)
	if !errors.Is(err, ErrUnknownProgram) {
		t.Fatalf("expected UnknownProgram, got %v", err)
	}
	if CodeOf(err) != "UnknownProgram" {
		t.Fatalf("code = %s", CodeOf(err))
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(time.Unix(10, 0))
	c.Advance(5 * time.Second)
	if c.Now().Unix() != 15 {
		t.Fatalf("now = %d", c.Now().Unix())
	}
	c.Set(time.Unix(3, 0))
	if c.Now().Unix() != 3 {
		t.Fatalf("now = %d", c.Now().Unix())
	}
}
