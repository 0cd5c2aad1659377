package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/ledger-chess/internal/account"
	"github.com/redis/go-redis/v9"
)

var (
	prog  = account.ProgramID("ledger-test")
	addrA = account.Address{0xa}
	addrB = account.Address{0xb}
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := NewRedisStore(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{"memory": NewMemoryStore(), "redis": rs}
}

func TestUpdateCommitsAllWrites(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := s.Update(ctx, []account.Address{addrA, addrB}, func(tx *Txn) error {
				if a, err := tx.Get(addrA); err != nil || a != nil {
					t.Fatalf("fresh account: %v %v", a, err)
				}
				if err := tx.Put(addrA, &Account{Program: prog, Data: []byte("a")}); err != nil {
					return err
				}
				// reads see staged writes
				if a, _ := tx.Get(addrA); a == nil || string(a.Data) != "a" {
					t.Fatalf("staged write not visible")
				}
				return tx.Put(addrB, &Account{Program: prog, Data: []byte("b")})
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			for addr, want := range map[account.Address]string{addrA: "a", addrB: "b"} {
				got, err := s.Get(ctx, addr)
				if err != nil || got == nil || string(got.Data) != want || got.Program != prog {
					t.Fatalf("Get(%s) = %+v, %v", addr, got, err)
				}
			}
		})
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			boom := errors.New("boom")
			err := s.Update(ctx, []account.Address{addrA, addrB}, func(tx *Txn) error {
				_ = tx.Put(addrA, &Account{Program: prog, Data: []byte("a")})
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			if a, _ := s.Get(ctx, addrA); a != nil {
				t.Fatalf("write leaked after failed transaction: %+v", a)
			}
		})
	}
}

func TestUndeclaredAccountRejected(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Update(context.Background(), []account.Address{addrA}, func(tx *Txn) error {
				_, err := tx.Get(addrB)
				return err
			})
			if !errors.Is(err, ErrUndeclaredAccount) {
				t.Fatalf("expected ErrUndeclaredAccount, got %v", err)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			keys := []account.Address{addrA}
			_ = s.Update(ctx, keys, func(tx *Txn) error { return tx.Put(addrA, &Account{Program: prog, Data: []byte{1}}) })
			if err := s.Update(ctx, keys, func(tx *Txn) error { return tx.Delete(addrA) }); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if a, _ := s.Get(ctx, addrA); a != nil {
				t.Fatalf("account survived delete")
			}
		})
	}
}

func TestRedisConflictAborts(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer other.Close()

	err := s.Update(ctx, []account.Address{addrA}, func(tx *Txn) error {
		if _, err := tx.Get(addrA); err != nil {
			return err
		}
		// a second writer lands between the read and the commit
		if err := other.Set(ctx, s.key(addrA), "x", 0).Err(); err != nil {
			t.Fatalf("other set: %v", err)
		}
		return tx.Put(addrA, &Account{Program: prog, Data: []byte("mine")})
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	raw, _ := other.Get(ctx, s.key(addrA)).Result()
	if raw != "x" {
		t.Fatalf("conflicting transaction overwrote the winner: %q", raw)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := ParseRedisURL("redis://:secret@localhost:6380/3")
	if err != nil {
		t.Fatalf("ParseRedisURL: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 3 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := ParseRedisURL("http://localhost"); err == nil {
		t.Fatalf("expected scheme error")
	}
}
