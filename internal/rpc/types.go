package rpc

import (
	"fmt"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/chess"
	"github.com/park285/ledger-chess/internal/ledger"
	"github.com/park285/ledger-chess/internal/runtime"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// APIError is a non-2xx response. It matches runtime errors with the same
// code under errors.Is, so callers can test against program sentinels.
type APIError struct {
	Status int
	ErrorBody
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rpc %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) ErrorCode() string { return e.Code }

func (e *APIError) Is(target error) bool {
	t, ok := target.(*runtime.Error)
	return ok && t.Code == e.Code
}

type SubmitResponse struct {
	Receipt *runtime.Receipt `json:"receipt"`
}

// GameView adds derived fields to a stored game.
type GameView struct {
	*account.Game
	FEN        string      `json:"fen"`
	SideToMove chess.Color `json:"side_to_move"`
}

// AccountView is a decoded account; exactly one record field is set unless
// Kind is unknown.
type AccountView struct {
	Address      account.Address       `json:"address"`
	Program      account.Address       `json:"program"`
	Kind         string                `json:"kind"`
	User         *account.User         `json:"user,omitempty"`
	Game         *GameView             `json:"game,omitempty"`
	SessionToken *account.SessionToken `json:"session_token,omitempty"`
	Raw          []byte                `json:"raw,omitempty"`
}

func viewOf(addr account.Address, acct *ledger.Account) (*AccountView, error) {
	v := &AccountView{Address: addr, Program: acct.Program, Kind: account.KindOf(acct.Data).String()}
	switch account.KindOf(acct.Data) {
	case account.KindUser:
		u, err := account.DecodeUser(acct.Data)
		if err != nil {
			return nil, err
		}
		v.User = u
	case account.KindGame:
		g, err := account.DecodeGame(acct.Data)
		if err != nil {
			return nil, err
		}
		v.Game = &GameView{Game: g, FEN: g.FEN(), SideToMove: g.SideToMove()}
	case account.KindSessionToken:
		t, err := account.DecodeSessionToken(acct.Data)
		if err != nil {
			return nil, err
		}
		v.SessionToken = t
	default:
		v.Raw = acct.Data
	}
	return v, nil
}
