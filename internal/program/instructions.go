package program

import (
	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/chess"
)

// Instruction is a tagged union; exactly one field is set.
type Instruction struct {
	InitializeUser *InitializeUser `cbor:"init_user,omitempty" json:"initialize_user,omitempty"`
	InitializeGame *InitializeGame `cbor:"init_game,omitempty" json:"initialize_game,omitempty"`
	JoinGame       *JoinGame       `cbor:"join,omitempty" json:"join_game,omitempty"`
	MovePiece      *MovePiece      `cbor:"move,omitempty" json:"move_piece,omitempty"`
	Resign         *Resign         `cbor:"resign,omitempty" json:"resign,omitempty"`
	OfferDraw      *OfferDraw      `cbor:"offer_draw,omitempty" json:"offer_draw,omitempty"`
	AcceptDraw     *AcceptDraw     `cbor:"accept_draw,omitempty" json:"accept_draw,omitempty"`
	Deposit        *Deposit        `cbor:"deposit,omitempty" json:"deposit,omitempty"`
	Withdraw       *Withdraw       `cbor:"withdraw,omitempty" json:"withdraw,omitempty"`
}

func (ix *Instruction) count() int {
	n := 0
	for _, set := range []bool{
		ix.InitializeUser != nil, ix.InitializeGame != nil, ix.JoinGame != nil,
		ix.MovePiece != nil, ix.Resign != nil, ix.OfferDraw != nil,
		ix.AcceptDraw != nil, ix.Deposit != nil, ix.Withdraw != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Name is the instruction's snake_case name, used in logs.
func (ix *Instruction) Name() string {
	switch {
	case ix.InitializeUser != nil:
		return "initialize_user"
	case ix.InitializeGame != nil:
		return "initialize_game"
	case ix.JoinGame != nil:
		return "join_game"
	case ix.MovePiece != nil:
		return "move_piece"
	case ix.Resign != nil:
		return "resign"
	case ix.OfferDraw != nil:
		return "offer_draw"
	case ix.AcceptDraw != nil:
		return "accept_draw"
	case ix.Deposit != nil:
		return "deposit"
	case ix.Withdraw != nil:
		return "withdraw"
	}
	return "unknown"
}

type InitializeUser struct {
	User account.Address `cbor:"user" json:"user"`
}

type InitializeGame struct {
	Wager        *uint64          `cbor:"wager,omitempty" json:"wager,omitempty"`
	IsRated      bool             `cbor:"rated" json:"is_rated"`
	User         account.Address  `cbor:"user" json:"user"`
	Game         account.Address  `cbor:"game" json:"game"`
	SessionToken *account.Address `cbor:"token,omitempty" json:"session_token,omitempty"`
}

type JoinGame struct {
	Color        chess.Color      `cbor:"color" json:"color"`
	User         account.Address  `cbor:"user" json:"user"`
	Game         account.Address  `cbor:"game" json:"game"`
	SessionToken *account.Address `cbor:"token,omitempty" json:"session_token,omitempty"`
}

type MovePiece struct {
	From chess.Square `cbor:"from" json:"from"`
	To   chess.Square `cbor:"to" json:"to"`
	// Promotion is NoKind for a queen or a non-promoting move.
	Promotion     chess.PieceKind  `cbor:"promo,omitempty" json:"promotion,omitempty"`
	User          account.Address  `cbor:"user" json:"user"`
	AdversaryUser account.Address  `cbor:"adversary" json:"adversary_user"`
	Game          account.Address  `cbor:"game" json:"game"`
	SessionToken  *account.Address `cbor:"token,omitempty" json:"session_token,omitempty"`
}

type Resign struct {
	User          account.Address  `cbor:"user" json:"user"`
	AdversaryUser account.Address  `cbor:"adversary" json:"adversary_user"`
	Game          account.Address  `cbor:"game" json:"game"`
	SessionToken  *account.Address `cbor:"token,omitempty" json:"session_token,omitempty"`
}

type OfferDraw struct {
	User         account.Address  `cbor:"user" json:"user"`
	Game         account.Address  `cbor:"game" json:"game"`
	SessionToken *account.Address `cbor:"token,omitempty" json:"session_token,omitempty"`
}

type AcceptDraw struct {
	User          account.Address  `cbor:"user" json:"user"`
	AdversaryUser account.Address  `cbor:"adversary" json:"adversary_user"`
	Game          account.Address  `cbor:"game" json:"game"`
	SessionToken  *account.Address `cbor:"token,omitempty" json:"session_token,omitempty"`
}

type Deposit struct {
	Amount uint64          `cbor:"amount" json:"amount"`
	User   account.Address `cbor:"user" json:"user"`
}

type Withdraw struct {
	Amount uint64          `cbor:"amount" json:"amount"`
	User   account.Address `cbor:"user" json:"user"`
}
