package chess

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrOutOfBounds = errors.New("square out of bounds")
)

// Move is an accepted move with the promotion that was actually applied.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
}

var promoLetters = map[PieceKind]string{Queen: "q", Rook: "r", Bishop: "b", Knight: "n"}

// UCI renders the move in long algebraic form ("e7e8q").
func (m Move) UCI() string { return m.From.String() + m.To.String() + promoLetters[m.Promotion] }

// Terminal classifies a position that ends the game.
type Terminal uint8

const (
	NotTerminal Terminal = iota
	Checkmate
	Stalemate
	InsufficientMaterial
	SeventyFiveMoveRule
)

func (t Terminal) String() string {
	switch t {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case InsufficientMaterial:
		return "insufficient_material"
	case SeventyFiveMoveRule:
		return "seventy_five_move"
	}
	return "none"
}

// Decisive reports whether the terminal state has a winner.
func (t Terminal) Decisive() bool { return t == Checkmate }

func terminalOf(m nchess.Method) Terminal {
	switch m {
	case nchess.Checkmate:
		return Checkmate
	case nchess.Stalemate:
		return Stalemate
	case nchess.InsufficientMaterial:
		return InsufficientMaterial
	case nchess.SeventyFiveMoveRule:
		return SeventyFiveMoveRule
	}
	return NotTerminal
}

// Result is the outcome of an accepted move.
type Result struct {
	Position Position
	Move     Move
	Capture  bool
	Check    bool
	Terminal Terminal
}

// AttemptMove validates a move by side from the given position and returns
// the successor. It never mutates pos. Promotion defaults to a queen and is
// ignored for moves that do not promote.
func AttemptMove(pos Position, side Color, from, to Square, promotion PieceKind) (Result, error) {
	if !from.Valid() || !to.Valid() {
		return Result{}, fmt.Errorf("%w: %s -> %s", ErrOutOfBounds, from, to)
	}
	if side != pos.Turn() {
		return Result{}, fmt.Errorf("%w: %s is not on move", ErrIllegalMove, side)
	}
	switch promotion {
	case NoKind:
		promotion = Queen
	case Queen, Rook, Bishop, Knight:
	default:
		return Result{}, fmt.Errorf("%w: cannot promote to %s", ErrIllegalMove, promotion)
	}

	game, err := pos.game()
	if err != nil {
		return Result{}, err
	}
	cur := game.Position()
	p := cur.Board().Piece(from.lib())
	if p == nchess.NoPiece {
		return Result{}, fmt.Errorf("%w: no piece on %s", ErrIllegalMove, from)
	}
	if c := colorOf(p.Color()); c != side {
		return Result{}, fmt.Errorf("%w: piece on %s belongs to %s", ErrIllegalMove, from, c)
	}

	var chosen *nchess.Move
	for _, m := range cur.ValidMoves() {
		if m.S1() != from.lib() || m.S2() != to.lib() {
			continue
		}
		if m.Promo() != nchess.NoPieceType && m.Promo() != promotion.lib() {
			continue
		}
		mv := m
		chosen = &mv
		break
	}
	if chosen == nil {
		return Result{}, fmt.Errorf("%w: %s cannot reach %s", ErrIllegalMove, kindOf(p.Type()), to)
	}
	if err := game.Move(chosen, nil); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	return Result{
		Position: Position{fen: game.Position().String()},
		Move:     Move{From: from, To: to, Promotion: kindOf(chosen.Promo())},
		Capture:  chosen.HasTag(nchess.Capture) || chosen.HasTag(nchess.EnPassant),
		Check:    chosen.HasTag(nchess.Check),
		Terminal: terminalOf(game.Method()),
	}, nil
}
