// chessctl drives a chess node from the command line: key management,
// account setup, games and session delegation.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/rpc"
	"github.com/park285/ledger-chess/internal/runtime"
	"github.com/spf13/pflag"
)

type globals struct {
	node           string
	keyPath        string
	chessProgram   string
	sessionProgram string
	timeout        time.Duration
}

func (g *globals) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.node, "node", envOr("CHESS_NODE_URL", "http://127.0.0.1:8899"), "chess node base URL")
	fs.StringVarP(&g.keyPath, "key", "k", envOr("CHESS_KEY", "chess.key"), "wallet key file")
	fs.StringVar(&g.chessProgram, "chess-program", "", "chess program id (default: well-known id)")
	fs.StringVar(&g.sessionProgram, "session-program", "", "session program id (default: well-known id)")
	fs.DurationVar(&g.timeout, "timeout", 15*time.Second, "request timeout")
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	name  string
	usage string
	run   func(c *cli, args []string) error
	flags func(fs *pflag.FlagSet)
}

func run(argv []string) error {
	if len(argv) == 0 || argv[0] == "help" || argv[0] == "-h" || argv[0] == "--help" {
		printUsage()
		return nil
	}
	cmd, ok := lookupCommand(argv[0])
	if !ok {
		printUsage()
		return fmt.Errorf("unknown command %q", argv[0])
	}

	var g globals
	fs := pflag.NewFlagSet("chessctl "+cmd.name, pflag.ContinueOnError)
	g.addFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(argv[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	c, err := newCLI(g)
	if err != nil {
		return err
	}
	return cmd.run(c, fs.Args())
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chessctl <command> [flags]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commandList {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", c.name, c.usage)
	}
}

// cli holds resolved globals shared by every command.
type cli struct {
	g         globals
	client    *rpc.Client
	chessID   account.Address
	sessionID account.Address
}

func newCLI(g globals) (*cli, error) {
	c := &cli{g: g, client: rpc.NewClient(g.node)}
	var err error
	if c.chessID, err = programID(g.chessProgram, account.ChessProgramLabel); err != nil {
		return nil, fmt.Errorf("--chess-program: %w", err)
	}
	if c.sessionID, err = programID(g.sessionProgram, account.SessionProgramLabel); err != nil {
		return nil, fmt.Errorf("--session-program: %w", err)
	}
	return c, nil
}

func programID(raw, label string) (account.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return account.ProgramID(label), nil
	}
	return account.ParseAddress(raw)
}

func (c *cli) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.g.timeout)
}

func loadKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	b, err := base58.Decode(strings.TrimSpace(string(raw)))
	if err != nil || len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("key file %s is not a base58 ed25519 private key", path)
	}
	return ed25519.PrivateKey(b), nil
}

func writeKey(path string) (ed25519.PrivateKey, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s already exists", path)
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(base58.Encode(priv)+"\n"), 0o600); err != nil {
		return nil, err
	}
	return priv, nil
}

// submit signs ix for program with key and any cosigners, then sends it.
func (c *cli) submit(program account.Address, key ed25519.PrivateKey, ix any, cosigners ...ed25519.PrivateKey) error {
	tx, err := runtime.NewTransaction(program, runtime.PublicAddress(key), ix, uint64(time.Now().UnixNano()))
	if err != nil {
		return err
	}
	for _, k := range append([]ed25519.PrivateKey{key}, cosigners...) {
		if err := tx.Sign(k); err != nil {
			return err
		}
	}
	ctx, cancel := c.context()
	defer cancel()
	rec, err := c.client.Submit(ctx, tx)
	if err != nil {
		return err
	}
	return printJSON(rec)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
