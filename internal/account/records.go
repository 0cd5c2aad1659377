package account

import (
	"github.com/park285/ledger-chess/internal/chess"
)

// User is the per-wallet player record.
type User struct {
	Owner   Address `cbor:"owner" json:"owner"`
	Games   uint64  `cbor:"games" json:"games"`
	Balance uint64  `cbor:"balance" json:"balance"`
}

// GameStatus is the lifecycle stage of a game.
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusActive   GameStatus = "active"
	StatusFinished GameStatus = "finished"
)

// Reason records why a game finished.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonCheckmate            Reason = "checkmate"
	ReasonStalemate            Reason = "stalemate"
	ReasonResignation          Reason = "resignation"
	ReasonDrawAgreement        Reason = "draw_agreement"
	ReasonInsufficientMaterial Reason = "insufficient_material"
	ReasonSeventyFiveMove      Reason = "seventy_five_move"
)

// ReasonFor maps an engine terminal state to a finish reason.
func ReasonFor(t chess.Terminal) Reason {
	switch t {
	case chess.Checkmate:
		return ReasonCheckmate
	case chess.Stalemate:
		return ReasonStalemate
	case chess.InsufficientMaterial:
		return ReasonInsufficientMaterial
	case chess.SeventyFiveMoveRule:
		return ReasonSeventyFiveMove
	}
	return ReasonNone
}

// GameConfig is chosen by the creator. IsRated is stored only.
type GameConfig struct {
	Wager   *uint64 `cbor:"wager,omitempty" json:"wager,omitempty"`
	IsRated bool    `cbor:"rated" json:"is_rated"`
}

func (c GameConfig) WagerAmount() uint64 {
	if c.Wager == nil {
		return 0
	}
	return *c.Wager
}

// Game is one chess match between two User records.
type Game struct {
	Creator   Address        `cbor:"creator" json:"creator"`
	Sequence  uint64         `cbor:"seq" json:"sequence"`
	White     *Address       `cbor:"white,omitempty" json:"white"`
	Black     *Address       `cbor:"black,omitempty" json:"black"`
	Position  chess.Position `cbor:"position" json:"-"`
	Status    GameStatus     `cbor:"status" json:"status"`
	Winner    *chess.Color   `cbor:"winner,omitempty" json:"winner,omitempty"`
	Reason    Reason         `cbor:"reason,omitempty" json:"reason,omitempty"`
	Config    GameConfig     `cbor:"config" json:"config"`
	DrawOffer *chess.Color   `cbor:"draw_offer,omitempty" json:"draw_offer,omitempty"`
	Moves     []string       `cbor:"moves" json:"moves"`
	CreatedAt int64          `cbor:"created_at" json:"created_at"`
	UpdatedAt int64          `cbor:"updated_at" json:"updated_at"`
}

// NewGame returns a waiting game at the standard starting position.
func NewGame(creator Address, sequence uint64, cfg GameConfig, now int64) *Game {
	return &Game{
		Creator:   creator,
		Sequence:  sequence,
		Position:  chess.StartingPosition(),
		Status:    StatusWaiting,
		Config:    cfg,
		Moves:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Seat returns the user holding color, or nil.
func (g *Game) Seat(c chess.Color) *Address {
	if c == chess.Black {
		return g.Black
	}
	return g.White
}

func (g *Game) setSeat(c chess.Color, user Address) {
	if c == chess.Black {
		g.Black = &user
		return
	}
	g.White = &user
}

// TakeSeat fills an empty seat and reports whether it did. It activates the
// game once both seats are filled.
func (g *Game) TakeSeat(c chess.Color, user Address) bool {
	if g.Seat(c) != nil {
		return false
	}
	g.setSeat(c, user)
	if g.White != nil && g.Black != nil && g.Status == StatusWaiting {
		g.Status = StatusActive
	}
	return true
}

// Holds reports whether user occupies color.
func (g *Game) Holds(c chess.Color, user Address) bool {
	s := g.Seat(c)
	return s != nil && *s == user
}

// SideToMove is the color whose turn it is.
func (g *Game) SideToMove() chess.Color { return g.Position.Turn() }

// FEN is the current position in Forsyth-Edwards notation.
func (g *Game) FEN() string { return g.Position.FEN() }

// Finish ends the game. A nil winner is a draw.
func (g *Game) Finish(winner *chess.Color, reason Reason) {
	g.Status = StatusFinished
	g.Winner = winner
	g.Reason = reason
	g.DrawOffer = nil
}

// SessionToken is a delegation record owned by the session program.
type SessionToken struct {
	Authority     Address `cbor:"authority" json:"authority"`
	TargetProgram Address `cbor:"target_program" json:"target_program"`
	SessionSigner Address `cbor:"session_signer" json:"session_signer"`
	ValidUntil    int64   `cbor:"valid_until" json:"valid_until"`
}
