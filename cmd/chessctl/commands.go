package main

import (
	"crypto/ed25519"
	"fmt"
	"strings"
	"time"

	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/chess"
	"github.com/park285/ledger-chess/internal/program"
	"github.com/park285/ledger-chess/internal/runtime"
	"github.com/park285/ledger-chess/internal/session"
	"github.com/spf13/pflag"
)

// per-command flag values
var (
	flagAmount    uint64
	flagWager     uint64
	flagRated     bool
	flagGame      string
	flagColor     string
	flagPromote   string
	flagToken     bool
	flagSignerKey string
	flagTTL       time.Duration
)

func gameFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&flagGame, "game", "g", "", "game address")
	fs.BoolVar(&flagToken, "session", false, "act through the session token of --signer-key")
	fs.StringVar(&flagSignerKey, "signer-key", "", "session key file; with --session, --key names the authority")
}

func amountFlag(fs *pflag.FlagSet) { fs.Uint64Var(&flagAmount, "amount", 0, "amount") }

func signerFlag(fs *pflag.FlagSet) { fs.StringVar(&flagSignerKey, "signer-key", "", "session key file") }

var commandList = []command{
	{name: "keygen", usage: "create a wallet key file", run: cmdKeygen},
	{name: "address", usage: "print the wallet and user addresses", run: cmdAddress},
	{name: "init-user", usage: "create the user record for the wallet", run: cmdInitUser},
	{name: "deposit", usage: "add --amount to the escrow balance", run: cmdBalance(true), flags: amountFlag},
	{name: "withdraw", usage: "take --amount from the escrow balance", run: cmdBalance(false), flags: amountFlag},
	{
		name:  "create-game",
		usage: "create a game [--wager N] [--rated]",
		run:   cmdCreateGame,
		flags: func(fs *pflag.FlagSet) {
			fs.Uint64Var(&flagWager, "wager", 0, "wager per seat")
			fs.BoolVar(&flagRated, "rated", false, "mark the game rated")
			gameFlags(fs)
		},
	},
	{
		name:  "join",
		usage: "take a seat: --game G --color white|black",
		run:   cmdJoin,
		flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagColor, "color", "white", "seat color")
			gameFlags(fs)
		},
	},
	{
		name:  "move",
		usage: "play a move: --game G e2e4 (or e2 e4)",
		run:   cmdMove,
		flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&flagPromote, "promote", "", "promotion piece: q, r, b or n")
			gameFlags(fs)
		},
	},
	{name: "resign", usage: "resign --game G", run: cmdResign, flags: gameFlags},
	{name: "offer-draw", usage: "offer a draw in --game G", run: cmdOfferDraw, flags: gameFlags},
	{name: "accept-draw", usage: "accept the opponent's draw offer in --game G", run: cmdAcceptDraw, flags: gameFlags},
	{
		name:  "session",
		usage: "delegate to --signer-key for --ttl",
		run:   cmdSession,
		flags: func(fs *pflag.FlagSet) {
			signerFlag(fs)
			fs.DurationVar(&flagTTL, "ttl", 0, "validity (default: node default)")
		},
	},
	{name: "revoke", usage: "revoke the session of --signer-key", run: cmdRevoke, flags: signerFlag},
	{name: "show", usage: "print a decoded account: show ADDRESS", run: cmdShow},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commandList {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func cmdKeygen(c *cli, _ []string) error {
	k, err := writeKey(c.g.keyPath)
	if err != nil {
		return err
	}
	fmt.Printf("wallet %s written to %s\n", runtime.PublicAddress(k), c.g.keyPath)
	return nil
}

func cmdAddress(c *cli, _ []string) error {
	k, err := loadKey(c.g.keyPath)
	if err != nil {
		return err
	}
	w := runtime.PublicAddress(k)
	fmt.Printf("wallet %s\nuser   %s\n", w, account.UserAddress(c.chessID, w))
	return nil
}

func cmdInitUser(c *cli, _ []string) error {
	k, err := loadKey(c.g.keyPath)
	if err != nil {
		return err
	}
	user := account.UserAddress(c.chessID, runtime.PublicAddress(k))
	return c.submit(c.chessID, k, program.Instruction{InitializeUser: &program.InitializeUser{User: user}})
}

func cmdBalance(deposit bool) func(c *cli, args []string) error {
	return func(c *cli, _ []string) error {
		k, err := loadKey(c.g.keyPath)
		if err != nil {
			return err
		}
		user := account.UserAddress(c.chessID, runtime.PublicAddress(k))
		ix := program.Instruction{Withdraw: &program.Withdraw{Amount: flagAmount, User: user}}
		if deposit {
			ix = program.Instruction{Deposit: &program.Deposit{Amount: flagAmount, User: user}}
		}
		return c.submit(c.chessID, k, ix)
	}
}

// actor is who signs and which user record they act for.
type actor struct {
	payer ed25519.PrivateKey
	user  account.Address
	token *account.Address
}

func (c *cli) actor() (actor, error) {
	k, err := loadKey(c.g.keyPath)
	if err != nil {
		return actor{}, err
	}
	authority := runtime.PublicAddress(k)
	a := actor{payer: k, user: account.UserAddress(c.chessID, authority)}
	if !flagToken {
		return a, nil
	}
	if flagSignerKey == "" {
		return actor{}, fmt.Errorf("--session needs --signer-key")
	}
	hot, err := loadKey(flagSignerKey)
	if err != nil {
		return actor{}, err
	}
	tok := account.SessionTokenAddress(c.sessionID, c.chessID, runtime.PublicAddress(hot), authority)
	a.payer, a.token = hot, &tok
	return a, nil
}

func (c *cli) gameAddr() (account.Address, error) {
	if flagGame == "" {
		return account.Address{}, fmt.Errorf("--game is required")
	}
	return account.ParseAddress(flagGame)
}

// opponent reads the game and returns the seat opposite user.
func (c *cli) opponent(game, user account.Address) (account.Address, error) {
	ctx, cancel := c.context()
	defer cancel()
	view, err := c.client.Account(ctx, game)
	if err != nil {
		return account.Address{}, err
	}
	if view.Game == nil {
		return account.Address{}, fmt.Errorf("%s is a %s account, not a game", game, view.Kind)
	}
	g := view.Game.Game
	side := view.Game.SideToMove
	for _, col := range []chess.Color{side, side.Opposite()} {
		if g.Holds(col, user) {
			if opp := g.Seat(col.Opposite()); opp != nil {
				return *opp, nil
			}
		}
	}
	return account.Address{}, fmt.Errorf("user %s holds no seat with an opponent in %s", user, game)
}

func cmdCreateGame(c *cli, _ []string) error {
	a, err := c.actor()
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	view, err := c.client.Account(ctx, a.user)
	if err != nil {
		return err
	}
	if view.User == nil {
		return fmt.Errorf("%s is not a user record", a.user)
	}
	game := account.GameAddress(c.chessID, a.user, view.User.Games)
	ix := &program.InitializeGame{IsRated: flagRated, User: a.user, Game: game, SessionToken: a.token}
	if flagWager > 0 {
		ix.Wager = &flagWager
	}
	fmt.Printf("game %s\n", game)
	return c.submit(c.chessID, a.payer, program.Instruction{InitializeGame: ix})
}

func cmdJoin(c *cli, _ []string) error {
	a, err := c.actor()
	if err != nil {
		return err
	}
	game, err := c.gameAddr()
	if err != nil {
		return err
	}
	color, err := chess.ParseColor(strings.ToLower(flagColor))
	if err != nil {
		return err
	}
	return c.submit(c.chessID, a.payer, program.Instruction{JoinGame: &program.JoinGame{Color: color, User: a.user, Game: game, SessionToken: a.token}})
}

func parseMoveArgs(args []string) (chess.Square, chess.Square, error) {
	joined := strings.ToLower(strings.Join(args, ""))
	if len(joined) != 4 {
		return chess.Square{}, chess.Square{}, fmt.Errorf("expected a move like e2e4")
	}
	from, err := chess.ParseSquare(joined[:2])
	if err != nil {
		return chess.Square{}, chess.Square{}, err
	}
	to, err := chess.ParseSquare(joined[2:])
	return from, to, err
}

func parsePromotion(s string) (chess.PieceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "q", "queen":
		return chess.NoKind, nil
	case "r", "rook":
		return chess.Rook, nil
	case "b", "bishop":
		return chess.Bishop, nil
	case "n", "knight":
		return chess.Knight, nil
	}
	return chess.NoKind, fmt.Errorf("unknown promotion piece %q", s)
}

func cmdMove(c *cli, args []string) error {
	a, err := c.actor()
	if err != nil {
		return err
	}
	game, err := c.gameAddr()
	if err != nil {
		return err
	}
	from, to, err := parseMoveArgs(args)
	if err != nil {
		return err
	}
	promo, err := parsePromotion(flagPromote)
	if err != nil {
		return err
	}
	opp, err := c.opponent(game, a.user)
	if err != nil {
		return err
	}
	ix := &program.MovePiece{From: from, To: to, Promotion: promo, User: a.user, AdversaryUser: opp, Game: game, SessionToken: a.token}
	return c.submit(c.chessID, a.payer, program.Instruction{MovePiece: ix})
}

func cmdResign(c *cli, _ []string) error {
	a, game, opp, err := c.gameActor()
	if err != nil {
		return err
	}
	return c.submit(c.chessID, a.payer, program.Instruction{Resign: &program.Resign{User: a.user, AdversaryUser: opp, Game: game, SessionToken: a.token}})
}

func cmdOfferDraw(c *cli, _ []string) error {
	a, err := c.actor()
	if err != nil {
		return err
	}
	game, err := c.gameAddr()
	if err != nil {
		return err
	}
	return c.submit(c.chessID, a.payer, program.Instruction{OfferDraw: &program.OfferDraw{User: a.user, Game: game, SessionToken: a.token}})
}

func cmdAcceptDraw(c *cli, _ []string) error {
	a, game, opp, err := c.gameActor()
	if err != nil {
		return err
	}
	return c.submit(c.chessID, a.payer, program.Instruction{AcceptDraw: &program.AcceptDraw{User: a.user, AdversaryUser: opp, Game: game, SessionToken: a.token}})
}

func (c *cli) gameActor() (actor, account.Address, account.Address, error) {
	a, err := c.actor()
	if err != nil {
		return actor{}, account.Address{}, account.Address{}, err
	}
	game, err := c.gameAddr()
	if err != nil {
		return actor{}, account.Address{}, account.Address{}, err
	}
	opp, err := c.opponent(game, a.user)
	return a, game, opp, err
}

func cmdSession(c *cli, _ []string) error {
	k, err := loadKey(c.g.keyPath)
	if err != nil {
		return err
	}
	if flagSignerKey == "" {
		return fmt.Errorf("--signer-key is required")
	}
	hot, err := loadKey(flagSignerKey)
	if err != nil {
		return err
	}
	create := &session.Create{Authority: runtime.PublicAddress(k), SessionSigner: runtime.PublicAddress(hot), TargetProgram: c.chessID}
	if flagTTL > 0 {
		until := time.Now().Add(flagTTL).Unix()
		create.ValidUntil = &until
	}
	fmt.Printf("token %s\n", account.SessionTokenAddress(c.sessionID, c.chessID, create.SessionSigner, create.Authority))
	return c.submit(c.sessionID, k, session.Instruction{Create: create}, hot)
}

func cmdRevoke(c *cli, _ []string) error {
	k, err := loadKey(c.g.keyPath)
	if err != nil {
		return err
	}
	if flagSignerKey == "" {
		return fmt.Errorf("--signer-key is required")
	}
	hot, err := loadKey(flagSignerKey)
	if err != nil {
		return err
	}
	revoke := &session.Revoke{Authority: runtime.PublicAddress(k), SessionSigner: runtime.PublicAddress(hot), TargetProgram: c.chessID}
	return c.submit(c.sessionID, k, session.Instruction{Revoke: revoke})
}

func cmdShow(c *cli, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: chessctl show ADDRESS")
	}
	addr, err := account.ParseAddress(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	view, err := c.client.Account(ctx, addr)
	if err != nil {
		return err
	}
	return printJSON(view)
}
