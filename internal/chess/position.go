package chess

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is an immutable chess position held as FEN. The zero value is
// the standard starting position. It encodes to CBOR as the FEN bytes.
type Position struct {
	fen string
}

// StartingPosition returns the standard initial setup with White to move.
func StartingPosition() Position { return Position{fen: startFEN} }

// ParseFEN validates s and returns it in the canonical form FEN produces.
func ParseFEN(s string) (Position, error) {
	g, err := newGame(strings.TrimSpace(s))
	if err != nil {
		return Position{}, err
	}
	return Position{fen: g.Position().String()}, nil
}

// FEN renders the position in Forsyth-Edwards notation.
func (p Position) FEN() string {
	if p.fen == "" {
		return startFEN
	}
	return p.fen
}

// Turn is the side to move.
func (p Position) Turn() Color {
	fields := strings.Fields(p.FEN())
	if len(fields) > 1 && fields[1] == "b" {
		return Black
	}
	return White
}

// Evaluate reports the terminal status of p for its side to move.
func Evaluate(p Position) (Terminal, error) {
	g, err := p.game()
	if err != nil {
		return NotTerminal, err
	}
	return terminalOf(g.Method()), nil
}

func (p Position) MarshalBinary() ([]byte, error) { return []byte(p.FEN()), nil }

func (p *Position) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		*p = Position{}
		return nil
	}
	v, err := ParseFEN(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Position) game() (*nchess.Game, error) { return newGame(p.FEN()) }

func newGame(fen string) (*nchess.Game, error) {
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("fen %q: %w", fen, err)
	}
	return nchess.NewGame(opt), nil
}
