package program

import "github.com/park285/ledger-chess/internal/runtime"

var (
	ErrAlreadyInitialized  = runtime.NewError("AlreadyInitialized", "account already initialized")
	ErrUnauthorized        = runtime.NewError("Unauthorized", "signer may not act for this user")
	ErrInvalidToken        = runtime.NewError("InvalidToken", "session token rejected")
	ErrSeatTaken           = runtime.NewError("SeatTaken", "seat already taken")
	ErrWrongPlayer         = runtime.NewError("WrongPlayer", "user is not the player on move")
	ErrMismatchedOpponent  = runtime.NewError("MismatchedOpponent", "adversary does not hold the opposing seat")
	ErrIllegalMove         = runtime.NewError("IllegalMove", "move is not legal")
	ErrOutOfBounds         = runtime.NewError("OutOfBounds", "square is off the board")
	ErrGameNotActive       = runtime.NewError("GameNotActive", "game is not active")
	ErrAccountNotFound     = runtime.NewError("AccountNotFound", "account not found")
	ErrAccountMismatch     = runtime.NewError("AccountMismatch", "account does not match its derived address")
	ErrInsufficientBalance = runtime.NewError("InsufficientBalance", "balance too low")
	ErrNoDrawOffer         = runtime.NewError("NoDrawOffer", "no draw offer from the opponent")
	ErrInvalidArgument     = runtime.NewError("InvalidArgument", "invalid instruction")
)
