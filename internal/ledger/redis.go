package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/obslog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps each account under its own key and commits transactions
// with WATCH/MULTI, so a concurrent writer to any declared key aborts the
// transaction instead of interleaving with it.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis ledger")
	}
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb), nil
}

func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "ledger:acct:"}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) key(addr account.Address) string { return s.prefix + addr.String() }

func (s *RedisStore) Get(ctx context.Context, addr account.Address) (*Account, error) {
	return s.read(ctx, s.rdb, addr)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, c getter, addr account.Address) (*Account, error) {
	raw, err := c.Get(ctx, s.key(addr)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeAccount(raw)
}

func (s *RedisStore) Update(ctx context.Context, keys []account.Address, fn func(tx *Txn) error) error {
	watched := make([]string, 0, len(keys))
	for _, k := range keys {
		watched = append(watched, s.key(k))
	}
	err := s.rdb.Watch(ctx, func(rtx *redis.Tx) error {
		tx := newTxn(keys, func(addr account.Address) (*Account, error) {
			return s.read(ctx, rtx, addr)
		})
		if err := fn(tx); err != nil {
			return err
		}
		writes := tx.Writes()
		if len(writes) == 0 {
			return nil
		}
		encoded := make([][]byte, len(writes))
		for i, w := range writes {
			if w.Account == nil {
				continue
			}
			raw, err := encodeAccount(w.Account)
			if err != nil {
				return err
			}
			encoded[i] = raw
		}
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, w := range writes {
				if w.Account == nil {
					pipe.Del(ctx, s.key(w.Address))
					continue
				}
				pipe.Set(ctx, s.key(w.Address), encoded[i], 0)
			}
			return nil
		})
		return err
	}, watched...)
	if errors.Is(err, redis.TxFailedErr) {
		obslog.L().Warn("ledger_conflict", zap.Int("keys", len(keys)))
		return ErrConflict
	}
	return err
}

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional /db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad redis db %q: %w", p, err)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}
