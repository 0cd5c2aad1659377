// Package archive exports finished games off-ledger as PGN rows.
package archive

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/chess"
)

// Record is the archived form of one finished game.
type Record struct {
	GameID     string
	Creator    string
	White      string
	Black      string
	Result     string // white, black or draw
	Method     string
	MovesUCI   []string
	MovesSAN   []string
	PGN        string
	FinalFEN   string
	Wager      uint64
	Rated      bool
	StartedAt  time.Time
	EndedAt    time.Time
	DurationMs int64
}

func seatString(a *account.Address) string {
	if a == nil {
		return ""
	}
	return a.String()
}

// BuildRecord renders g, stored at addr, for archiving.
func BuildRecord(addr account.Address, g *account.Game) Record {
	rec := Record{
		GameID:    addr.String(),
		Creator:   g.Creator.String(),
		White:     seatString(g.White),
		Black:     seatString(g.Black),
		Result:    "draw",
		Method:    string(g.Reason),
		MovesUCI:  append([]string(nil), g.Moves...),
		MovesSAN:  sanMoves(g.Moves),
		FinalFEN:  g.FEN(),
		Wager:     g.Config.WagerAmount(),
		Rated:     g.Config.IsRated,
		StartedAt: time.Unix(g.CreatedAt, 0).UTC(),
		EndedAt:   time.Unix(g.UpdatedAt, 0).UTC(),
	}
	if g.Winner != nil {
		rec.Result = g.Winner.String()
	}
	if g.Status != account.StatusFinished {
		rec.Result = ""
	}
	rec.DurationMs = rec.EndedAt.Sub(rec.StartedAt).Milliseconds()
	if rec.DurationMs < 0 {
		rec.DurationMs = 0
	}
	rec.PGN = buildPGN(rec, mapResultToPGN(rec.Result))
	return rec
}

// sanMoves replays the coordinate log from the initial position. A move the
// replay cannot decode ends the SAN list early.
func sanMoves(moves []string) []string {
	out := make([]string, 0, len(moves))
	game := nchess.NewGame()
	for _, uci := range moves {
		pos := game.Position()
		mv, err := nchess.UCINotation{}.Decode(pos, uci)
		if err != nil {
			break
		}
		san := nchess.AlgebraicNotation{}.Encode(pos, mv)
		if err := game.Move(mv, nil); err != nil {
			break
		}
		out = append(out, san)
	}
	return out
}

func mapResultToPGN(result string) string {
	switch result {
	case chess.White.String():
		return "1-0"
	case chess.Black.String():
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(rec Record, pgnResult string) string {
	var b strings.Builder
	date := rec.EndedAt
	b.WriteString("[Event \"Ledger Chess\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(rec.GameID)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(rec.White)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(rec.Black)))
	if rec.Method != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(rec.Method)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, rec.MovesSAN[i]))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(rec.MovesSAN[i+1])
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
