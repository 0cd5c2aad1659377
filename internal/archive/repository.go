package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/ledger-chess/internal/account"
)

const schema = `CREATE TABLE IF NOT EXISTS ledger_games (
    game_id       TEXT PRIMARY KEY,
    creator       TEXT NOT NULL,
    white_id      TEXT NOT NULL,
    black_id      TEXT NOT NULL,
    result        TEXT NOT NULL,
    result_method TEXT NOT NULL,
    moves_uci     JSONB NOT NULL,
    moves_san     JSONB NOT NULL,
    pgn           TEXT NOT NULL,
    final_fen     TEXT NOT NULL,
    wager         BIGINT NOT NULL DEFAULT 0,
    rated         BOOLEAN NOT NULL DEFAULT FALSE,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL
)`

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger_games: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts the archived row for a finished game.
func (r *Repository) SaveResult(ctx context.Context, addr account.Address, g *account.Game) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	rec := BuildRecord(addr, g)
	movesUCIRaw, movesSANRaw, err := moveColumns(rec)
	if err != nil {
		return err
	}

	q := `INSERT INTO ledger_games (
        game_id, creator, white_id, black_id,
        result, result_method, moves_uci, moves_san, pgn, final_fen,
        wager, rated, started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
      ) ON CONFLICT (game_id) DO UPDATE SET
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        final_fen=EXCLUDED.final_fen,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		rec.GameID, rec.Creator, rec.White, rec.Black,
		rec.Result, rec.Method, string(movesUCIRaw), string(movesSANRaw), rec.PGN, rec.FinalFEN,
		int64(rec.Wager), rec.Rated, rec.StartedAt, rec.EndedAt, rec.DurationMs,
	)
	return err
}

// moveColumns encodes both move lists as JSON arrays; an empty game stores
// "[]" rather than null.
func moveColumns(rec Record) ([]byte, []byte, error) {
	uci, err := json.Marshal(nonNil(rec.MovesUCI))
	if err != nil {
		return nil, nil, fmt.Errorf("encode uci moves: %w", err)
	}
	san, err := json.Marshal(nonNil(rec.MovesSAN))
	if err != nil {
		return nil, nil, fmt.Errorf("encode san moves: %w", err)
	}
	return uci, san, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Memory keeps records in process. The node uses it when no database is
// configured.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemory() *Memory { return &Memory{records: make(map[string]Record)} }

func (m *Memory) SaveResult(ctx context.Context, addr account.Address, g *account.Game) error {
	if g == nil {
		return nil
	}
	rec := BuildRecord(addr, g)
	m.mu.Lock()
	m.records[rec.GameID] = rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(gameID string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[gameID]
	return rec, ok
}
