package config

import (
	"strings"
	"testing"
	"time"

	"github.com/park285/ledger-chess/internal/account"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8899" {
		t.Fatalf("listen = %q", cfg.ListenAddr)
	}
	if cfg.SessionDefaultTTL != time.Hour || cfg.SessionMaxTTL != 7*24*time.Hour {
		t.Fatalf("ttls = %s / %s", cfg.SessionDefaultTTL, cfg.SessionMaxTTL)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "legacy" || !cfg.Log.Console {
		t.Fatalf("log = %+v", cfg.Log)
	}
	id, err := cfg.ChessProgram()
	if err != nil || id != account.ProgramID(account.ChessProgramLabel) {
		t.Fatalf("chess program = %s, %v", id, err)
	}
}

func TestLoadProgramOverride(t *testing.T) {
	want := account.ProgramID("staging-chess")
	t.Setenv("CHESS_PROGRAM_ID", want.String())
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, _ := cfg.ChessProgram()
	if got != want {
		t.Fatalf("chess program = %s, want %s", got, want)
	}
	if cfg.Log.Options().Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Options().Level)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"bad program":     {"SESSION_PROGRAM_ID", "not-base58-0OIl"},
		"default exceeds": {"SESSION_DEFAULT_TTL", "200h"},
		"zero ttl":        {"SESSION_MAX_TTL", "0s"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("SESSION_MAX_TTL", "forever")
	var cfg AppConfig
	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}
