package program

import (
	"errors"
	"fmt"
	"math"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/chess"
	"github.com/park285/ledger-chess/internal/obslog"
	"go.uber.org/zap"
)

func (inv *invocation) initializeUser(ix *InitializeUser) error {
	payer := inv.call.Payer
	if !inv.call.Signed(payer) {
		return ErrUnauthorized
	}
	if ix.User != inv.p.UserAddress(payer) {
		return fmt.Errorf("%w: user %s is not derived from payer %s", ErrAccountMismatch, ix.User, payer)
	}
	existing, err := inv.tx.Get(ix.User)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: user %s", ErrAlreadyInitialized, ix.User)
	}
	if err := inv.putUser(ix.User, &account.User{Owner: payer}); err != nil {
		return err
	}
	obslog.L().Info("user_initialized", zap.String("user", ix.User.String()), zap.String("owner", payer.String()))
	return nil
}

func (inv *invocation) initializeGame(ix *InitializeGame) error {
	u, err := inv.findUser(ix.User)
	if err != nil {
		return err
	}
	if err := inv.authorize(ix.User, u, ix.SessionToken); err != nil {
		return err
	}
	if want := inv.p.GameAddress(ix.User, u.Games); ix.Game != want {
		return fmt.Errorf("%w: game %s, expected %s", ErrAccountMismatch, ix.Game, want)
	}
	existing, err := inv.tx.Get(ix.Game)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: game %s", ErrAlreadyInitialized, ix.Game)
	}

	cfg := account.GameConfig{IsRated: ix.IsRated}
	if ix.Wager != nil && *ix.Wager > 0 {
		// The winner is paid twice the wager.
		if *ix.Wager > maxWager {
			return fmt.Errorf("%w: wager %d exceeds %d", ErrInvalidArgument, *ix.Wager, uint64(maxWager))
		}
		w := *ix.Wager
		cfg.Wager = &w
	}
	g := account.NewGame(ix.User, u.Games, cfg, inv.call.Now.Unix())
	u.Games++
	if err := inv.putGame(ix.Game, g); err != nil {
		return err
	}
	if err := inv.putUser(ix.User, u); err != nil {
		return err
	}
	obslog.L().Info("game_created",
		zap.String("game", ix.Game.String()),
		zap.String("creator", ix.User.String()),
		zap.Uint64("sequence", g.Sequence),
		zap.Uint64("wager", cfg.WagerAmount()),
		zap.Bool("rated", cfg.IsRated),
	)
	return nil
}

func (inv *invocation) joinGame(ix *JoinGame) error {
	if ix.Color != chess.White && ix.Color != chess.Black {
		return fmt.Errorf("%w: color %d", ErrInvalidArgument, ix.Color)
	}
	u, err := inv.findUser(ix.User)
	if err != nil {
		return err
	}
	if err := inv.authorize(ix.User, u, ix.SessionToken); err != nil {
		return err
	}
	g, err := inv.loadGame(ix.Game)
	if err != nil {
		return err
	}
	if g.Status == account.StatusFinished {
		return fmt.Errorf("%w: game %s is %s", ErrGameNotActive, ix.Game, g.Status)
	}
	if g.Seat(ix.Color) != nil {
		return fmt.Errorf("%w: %s in game %s", ErrSeatTaken, ix.Color, ix.Game)
	}
	if wager := g.Config.WagerAmount(); wager > 0 {
		if u.Balance < wager {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, wager, u.Balance)
		}
		u.Balance -= wager
		if err := inv.putUser(ix.User, u); err != nil {
			return err
		}
	}
	g.TakeSeat(ix.Color, ix.User)
	g.UpdatedAt = inv.call.Now.Unix()
	if err := inv.putGame(ix.Game, g); err != nil {
		return err
	}
	obslog.L().Info("game_join",
		zap.String("game", ix.Game.String()),
		zap.String("user", ix.User.String()),
		zap.String("color", ix.Color.String()),
		zap.String("status", string(g.Status)),
	)
	return nil
}

func (inv *invocation) movePiece(ix *MovePiece) error {
	u, err := inv.findUser(ix.User)
	if err != nil {
		return err
	}
	if err := inv.authorize(ix.User, u, ix.SessionToken); err != nil {
		return err
	}
	g, err := inv.loadGame(ix.Game)
	if err != nil {
		return err
	}
	if g.Status != account.StatusActive {
		return fmt.Errorf("%w: game %s is %s", ErrGameNotActive, ix.Game, g.Status)
	}
	side := g.SideToMove()
	if !g.Holds(side, ix.User) {
		return fmt.Errorf("%w: %s to move", ErrWrongPlayer, side)
	}
	if !g.Holds(side.Opposite(), ix.AdversaryUser) {
		return fmt.Errorf("%w: %s", ErrMismatchedOpponent, ix.AdversaryUser)
	}

	res, err := chess.AttemptMove(g.Position, side, ix.From, ix.To, ix.Promotion)
	switch {
	case errors.Is(err, chess.ErrOutOfBounds):
		return fmt.Errorf("%w: %v", ErrOutOfBounds, err)
	case err != nil:
		return fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	g.Position = res.Position
	g.Moves = append(g.Moves, res.Move.UCI())
	g.DrawOffer = nil
	g.UpdatedAt = inv.call.Now.Unix()
	obslog.L().Info("chess_move",
		zap.String("game", ix.Game.String()),
		zap.String("move", res.Move.UCI()),
		zap.String("side", side.String()),
		zap.Bool("check", res.Check),
		zap.Int("ply", len(g.Moves)),
	)

	if res.Terminal != chess.NotTerminal {
		var winner *chess.Color
		if res.Terminal.Decisive() {
			winner = &side
		}
		if err := inv.finish(ix.Game, g, winner, account.ReasonFor(res.Terminal), ix.User, ix.AdversaryUser); err != nil {
			return err
		}
	}
	return inv.putGame(ix.Game, g)
}

func (inv *invocation) resign(ix *Resign) error {
	u, err := inv.findUser(ix.User)
	if err != nil {
		return err
	}
	if err := inv.authorize(ix.User, u, ix.SessionToken); err != nil {
		return err
	}
	g, err := inv.loadGame(ix.Game)
	if err != nil {
		return err
	}
	if g.Status != account.StatusActive {
		return fmt.Errorf("%w: game %s is %s", ErrGameNotActive, ix.Game, g.Status)
	}
	color, ok := seatOf(g, ix.User)
	if !ok {
		return fmt.Errorf("%w: %s holds no seat", ErrWrongPlayer, ix.User)
	}
	if !g.Holds(color.Opposite(), ix.AdversaryUser) {
		return fmt.Errorf("%w: %s", ErrMismatchedOpponent, ix.AdversaryUser)
	}
	winner := color.Opposite()
	g.UpdatedAt = inv.call.Now.Unix()
	if err := inv.finish(ix.Game, g, &winner, account.ReasonResignation, ix.User, ix.AdversaryUser); err != nil {
		return err
	}
	return inv.putGame(ix.Game, g)
}

func (inv *invocation) offerDraw(ix *OfferDraw) error {
	u, err := inv.findUser(ix.User)
	if err != nil {
		return err
	}
	if err := inv.authorize(ix.User, u, ix.SessionToken); err != nil {
		return err
	}
	g, err := inv.loadGame(ix.Game)
	if err != nil {
		return err
	}
	if g.Status != account.StatusActive {
		return fmt.Errorf("%w: game %s is %s", ErrGameNotActive, ix.Game, g.Status)
	}
	color, ok := seatOf(g, ix.User)
	if !ok {
		return fmt.Errorf("%w: %s holds no seat", ErrWrongPlayer, ix.User)
	}
	g.DrawOffer = &color
	g.UpdatedAt = inv.call.Now.Unix()
	obslog.L().Info("draw_offered", zap.String("game", ix.Game.String()), zap.String("color", color.String()))
	return inv.putGame(ix.Game, g)
}

func (inv *invocation) acceptDraw(ix *AcceptDraw) error {
	u, err := inv.findUser(ix.User)
	if err != nil {
		return err
	}
	if err := inv.authorize(ix.User, u, ix.SessionToken); err != nil {
		return err
	}
	g, err := inv.loadGame(ix.Game)
	if err != nil {
		return err
	}
	if g.Status != account.StatusActive {
		return fmt.Errorf("%w: game %s is %s", ErrGameNotActive, ix.Game, g.Status)
	}
	if g.DrawOffer == nil {
		return ErrNoDrawOffer
	}
	offerer := *g.DrawOffer
	if !g.Holds(offerer.Opposite(), ix.User) {
		return fmt.Errorf("%w: the %s offer is not addressed to %s", ErrNoDrawOffer, offerer, ix.User)
	}
	if !g.Holds(offerer, ix.AdversaryUser) {
		return fmt.Errorf("%w: %s", ErrMismatchedOpponent, ix.AdversaryUser)
	}
	g.UpdatedAt = inv.call.Now.Unix()
	if err := inv.finish(ix.Game, g, nil, account.ReasonDrawAgreement, ix.User, ix.AdversaryUser); err != nil {
		return err
	}
	return inv.putGame(ix.Game, g)
}

// seatOf prefers the side to move when user holds both seats.
func seatOf(g *account.Game, user account.Address) (chess.Color, bool) {
	side := g.SideToMove()
	if g.Holds(side, user) {
		return side, true
	}
	if g.Holds(side.Opposite(), user) {
		return side.Opposite(), true
	}
	return side, false
}

// finish ends g and settles its wager between the two seat holders, which
// must be among users.
func (inv *invocation) finish(addr account.Address, g *account.Game, winner *chess.Color, reason account.Reason, users ...account.Address) error {
	g.Finish(winner, reason)
	if err := inv.settle(g, users); err != nil {
		return err
	}
	inv.finished = g
	inv.finishedAt = addr

	fields := []zap.Field{
		zap.String("game", addr.String()),
		zap.String("reason", string(reason)),
		zap.Int("plies", len(g.Moves)),
	}
	if winner != nil {
		fields = append(fields, zap.String("winner", winner.String()))
	}
	obslog.L().Info("game_finished", fields...)
	return nil
}

const maxWager = math.MaxUint64 / 2

// settle pays 2x the wager to the winner's seat, or refunds each seat on a draw.
func (inv *invocation) settle(g *account.Game, users []account.Address) error {
	wager := g.Config.WagerAmount()
	if wager == 0 {
		return nil
	}
	credits := map[account.Address]uint64{}
	if g.Winner != nil {
		credits[*g.Seat(*g.Winner)] += 2 * wager
	} else {
		credits[*g.White] += wager
		credits[*g.Black] += wager
	}

	seen := map[account.Address]bool{}
	for _, addr := range users {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		amount, ok := credits[addr]
		if !ok {
			continue
		}
		u, err := inv.mustUser(addr)
		if err != nil {
			return err
		}
		if u.Balance+amount < u.Balance {
			return fmt.Errorf("%w: payout to %s overflows balance", ErrInvalidArgument, addr)
		}
		u.Balance += amount
		if err := inv.putUser(addr, u); err != nil {
			return err
		}
		delete(credits, addr)
	}
	if len(credits) != 0 {
		return fmt.Errorf("%w: seat holder missing from settlement accounts", ErrMismatchedOpponent)
	}
	return nil
}

func (inv *invocation) deposit(ix *Deposit) error {
	if ix.Amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidArgument)
	}
	u, err := inv.findUser(ix.User)
	if err != nil {
		return err
	}
	if err := inv.authorize(ix.User, u, nil); err != nil {
		return err
	}
	if u.Balance+ix.Amount < u.Balance {
		return fmt.Errorf("%w: balance overflow", ErrInvalidArgument)
	}
	u.Balance += ix.Amount
	obslog.L().Info("balance_deposit", zap.String("user", ix.User.String()), zap.Uint64("amount", ix.Amount), zap.Uint64("balance", u.Balance))
	return inv.putUser(ix.User, u)
}

func (inv *invocation) withdraw(ix *Withdraw) error {
	if ix.Amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidArgument)
	}
	u, err := inv.findUser(ix.User)
	if err != nil {
		return err
	}
	if err := inv.authorize(ix.User, u, nil); err != nil {
		return err
	}
	if u.Balance < ix.Amount {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBalance, ix.Amount, u.Balance)
	}
	u.Balance -= ix.Amount
	obslog.L().Info("balance_withdraw", zap.String("user", ix.User.String()), zap.Uint64("amount", ix.Amount), zap.Uint64("balance", u.Balance))
	return inv.putUser(ix.User, u)
}
