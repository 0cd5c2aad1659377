package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/ledger-chess/internal/archive"
	appcfg "github.com/park285/ledger-chess/internal/config"
	"github.com/park285/ledger-chess/internal/ledger"
	"github.com/park285/ledger-chess/internal/msgcat"
	"github.com/park285/ledger-chess/internal/obslog"
	"github.com/park285/ledger-chess/internal/program"
	"github.com/park285/ledger-chess/internal/rpc"
	"github.com/park285/ledger-chess/internal/runtime"
	"github.com/park285/ledger-chess/internal/session"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	flags := pflag.NewFlagSet("chess-node", pflag.ContinueOnError)
	flags.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address to serve the RPC API on")
	flags.StringVar(&cfg.RedisURL, "redis", cfg.RedisURL, "redis URL for the ledger (empty: in-memory)")
	flags.StringVar(&cfg.DatabaseURL, "database", cfg.DatabaseURL, "postgres URL for the game archive (empty: in-memory)")
	flags.StringVar(&cfg.MessagesDir, "messages", cfg.MessagesDir, "directory of message catalog overrides")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		log.Fatalf("flag error: %v", err)
	}

	if err := obslog.Init(cfg.Log.Options()); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	if err := run(cfg); err != nil {
		obslog.L().Error("node_failed", zap.Error(err))
		obslog.Sync()
		os.Exit(1)
	}
}

func run(cfg *appcfg.AppConfig) error {
	chessID, _ := cfg.ChessProgram()
	sessionID, _ := cfg.SessionProgram()

	var store ledger.Store
	if cfg.RedisURL != "" {
		rs, err := ledger.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("ledger init: %w", err)
		}
		store = rs
	} else {
		obslog.L().Warn("ledger_in_memory", zap.String("hint", "set REDIS_URL to persist accounts"))
		store = ledger.NewMemoryStore()
	}
	defer store.Close()

	chessProg := program.New(chessID, sessionID)
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("archive init: %w", err)
		}
		defer repo.Close()
		chessProg.AttachArchive(repo)
	} else {
		chessProg.AttachArchive(archive.NewMemory())
	}
	sessionProg := session.New(sessionID, session.Options{DefaultTTL: cfg.SessionDefaultTTL, MaxTTL: cfg.SessionMaxTTL})

	rt := runtime.New(store, runtime.SystemClock, chessProg, sessionProg)

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages init: %w", err)
	}
	srv := rpc.NewServer(rt, msgs)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.ListenAddr) }()
	obslog.L().Info("node_started",
		zap.String("listen", cfg.ListenAddr),
		zap.String("chess_program", chessID.String()),
		zap.String("session_program", sessionID.String()),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		obslog.L().Info("node_stopping", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
