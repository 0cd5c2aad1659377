package chess

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color { return c ^ 1 }

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, error) {
	switch s {
	case "white", "w", "White":
		return White, nil
	case "black", "b", "Black":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

func (c Color) lib() nchess.Color {
	if c == Black {
		return nchess.Black
	}
	return nchess.White
}

func colorOf(c nchess.Color) Color {
	if c == nchess.Black {
		return Black
	}
	return White
}

// PieceKind is the type of a piece without its color.
type PieceKind uint8

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "none"
}

var kindTypes = [...]nchess.PieceType{
	NoKind: nchess.NoPieceType,
	Pawn:   nchess.Pawn,
	Knight: nchess.Knight,
	Bishop: nchess.Bishop,
	Rook:   nchess.Rook,
	Queen:  nchess.Queen,
	King:   nchess.King,
}

func (k PieceKind) lib() nchess.PieceType {
	if int(k) >= len(kindTypes) {
		return nchess.NoPieceType
	}
	return kindTypes[k]
}

func kindOf(t nchess.PieceType) PieceKind {
	for k, lt := range kindTypes {
		if lt == t {
			return PieceKind(k)
		}
	}
	return NoKind
}

// Square addresses a board cell. Rank 0 is Black's back rank, rank 7 is
// White's; White pawns advance toward rank 0.
type Square struct {
	File int `cbor:"f" json:"file"`
	Rank int `cbor:"r" json:"rank"`
}

func (s Square) Valid() bool { return s.File >= 0 && s.File < 8 && s.Rank >= 0 && s.Rank < 8 }

// String renders algebraic coordinates ("e2").
func (s Square) String() string {
	if !s.Valid() {
		return fmt.Sprintf("(%d,%d)", s.File, s.Rank)
	}
	return string([]byte{byte('a' + s.File), byte('8' - s.Rank)})
}

// lib maps s onto the library's a1-based numbering. s must be valid.
func (s Square) lib() nchess.Square {
	return nchess.NewSquare(nchess.File(s.File), nchess.Rank(7-s.Rank))
}

// ParseSquare reads algebraic coordinates.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Square{}, fmt.Errorf("%w: %q", ErrOutOfBounds, s)
	}
	return Square{File: int(s[0] - 'a'), Rank: int('8' - s[1])}, nil
}
