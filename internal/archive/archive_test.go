package archive

import (
	"context"
	"strings"
	"testing"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/chess"
)

func playedGame(t *testing.T, moves ...string) *account.Game {
	t.Helper()
	g := account.NewGame(account.Address{1}, 0, account.GameConfig{}, 1_700_000_000)
	g.TakeSeat(chess.White, account.Address{1})
	g.TakeSeat(chess.Black, account.Address{2})
	for _, uci := range moves {
		from, _ := chess.ParseSquare(uci[:2])
		to, _ := chess.ParseSquare(uci[2:4])
		res, err := chess.AttemptMove(g.Position, g.SideToMove(), from, to, chess.NoKind)
		if err != nil {
			t.Fatalf("%s: %v", uci, err)
		}
		g.Position = res.Position
		g.Moves = append(g.Moves, res.Move.UCI())
		if res.Terminal != chess.NotTerminal {
			var winner *chess.Color
			if res.Terminal.Decisive() {
				c := res.Position.Turn().Opposite()
				winner = &c
			}
			g.Finish(winner, account.ReasonFor(res.Terminal))
		}
	}
	g.UpdatedAt = g.CreatedAt + 90
	return g
}

func TestBuildRecordFoolsMate(t *testing.T) {
	g := playedGame(t, "f2f3", "e7e5", "g2g4", "d8h4")
	rec := BuildRecord(account.Address{9}, g)

	if rec.Result != "black" || rec.Method != "checkmate" {
		t.Fatalf("result %q method %q", rec.Result, rec.Method)
	}
	if len(rec.MovesSAN) != 4 || rec.MovesSAN[0] != "f3" || !strings.HasPrefix(rec.MovesSAN[3], "Qh4") {
		t.Fatalf("san = %v", rec.MovesSAN)
	}
	if !strings.Contains(rec.PGN, "1. f3 e5 2. g4 Qh4") || !strings.HasSuffix(rec.PGN, "0-1") {
		t.Fatalf("pgn = %s", rec.PGN)
	}
	if !strings.Contains(rec.PGN, `[Termination "checkmate"]`) {
		t.Fatalf("missing termination tag: %s", rec.PGN)
	}
	if rec.DurationMs != 90_000 {
		t.Fatalf("duration = %d", rec.DurationMs)
	}
}

func TestMoveColumns(t *testing.T) {
	rec := BuildRecord(account.Address{9}, playedGame(t, "f2f3", "e7e5", "g2g4", "d8h4"))
	uci, san, err := moveColumns(rec)
	if err != nil {
		t.Fatalf("moveColumns: %v", err)
	}
	if string(uci) != `["f2f3","e7e5","g2g4","d8h4"]` {
		t.Fatalf("uci = %s", uci)
	}
	if !strings.HasPrefix(string(san), `["f3","e5","g4","Qh4`) {
		t.Fatalf("san = %s", san)
	}

	uci, san, err = moveColumns(Record{})
	if err != nil {
		t.Fatalf("moveColumns empty: %v", err)
	}
	if string(uci) != "[]" || string(san) != "[]" {
		t.Fatalf("empty lists = %s %s", uci, san)
	}
}

func TestSANStopsAtUndecodableMove(t *testing.T) {
	if got := sanMoves([]string{"e2e4", "z9z9", "e7e5"}); len(got) != 1 || got[0] != "e4" {
		t.Fatalf("san = %v", got)
	}
}

func TestMapResultToPGN(t *testing.T) {
	cases := map[string]string{"white": "1-0", "black": "0-1", "draw": "1/2-1/2", "": "*"}
	for in, want := range cases {
		if got := mapResultToPGN(in); got != want {
			t.Fatalf("mapResultToPGN(%q) = %q", in, got)
		}
	}
}

func TestMemorySink(t *testing.T) {
	m := NewMemory()
	g := playedGame(t, "e2e4")
	g.Finish(nil, account.ReasonDrawAgreement)
	addr := account.Address{3}
	if err := m.SaveResult(context.Background(), addr, g); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	rec, ok := m.Get(addr.String())
	if !ok || rec.Result != "draw" || !strings.HasSuffix(rec.PGN, "1/2-1/2") {
		t.Fatalf("record = %+v", rec)
	}
}

func TestSanitizePGN(t *testing.T) {
	if got := sanitizePGN(` a"b\c `); got != "a'b c" {
		t.Fatalf("sanitizePGN = %q", got)
	}
}
