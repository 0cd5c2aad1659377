package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/park285/ledger-chess/internal/account"
	"github.com/park285/ledger-chess/internal/obslog"
)

type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8899"`

	// Empty RedisURL selects the in-memory ledger.
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Program IDs are base58 addresses; empty derives the well-known IDs.
	ChessProgramID   string `env:"CHESS_PROGRAM_ID"`
	SessionProgramID string `env:"SESSION_PROGRAM_ID"`

	SessionDefaultTTL time.Duration `env:"SESSION_DEFAULT_TTL" envDefault:"1h"`
	SessionMaxTTL     time.Duration `env:"SESSION_MAX_TTL" envDefault:"168h"`

	MessagesDir string `env:"MESSAGES_DIR"`

	Log LogConfig `envPrefix:"LOG_"`
}

type LogConfig struct {
	Level   string `env:"LEVEL" envDefault:"info"`
	Format  string `env:"FORMAT" envDefault:"legacy"`
	Console bool   `env:"TO_CONSOLE" envDefault:"true"`
	File    string `env:"FILE"`
	Caller  bool   `env:"CALLER" envDefault:"false"`
}

func (l LogConfig) Options() obslog.Options {
	return obslog.Options{Level: l.Level, Format: l.Format, Console: l.Console, File: l.File, Caller: l.Caller}
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.SessionDefaultTTL <= 0 || cfg.SessionMaxTTL <= 0 {
		return nil, errors.New("session TTLs must be positive")
	}
	if cfg.SessionDefaultTTL > cfg.SessionMaxTTL {
		return nil, fmt.Errorf("SESSION_DEFAULT_TTL %s exceeds SESSION_MAX_TTL %s", cfg.SessionDefaultTTL, cfg.SessionMaxTTL)
	}
	if _, err := cfg.ChessProgram(); err != nil {
		return nil, err
	}
	if _, err := cfg.SessionProgram(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) ChessProgram() (account.Address, error) {
	return programID("CHESS_PROGRAM_ID", c.ChessProgramID, account.ChessProgramLabel)
}

func (c *AppConfig) SessionProgram() (account.Address, error) {
	return programID("SESSION_PROGRAM_ID", c.SessionProgramID, account.SessionProgramLabel)
}

func programID(name, raw, label string) (account.Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return account.ProgramID(label), nil
	}
	addr, err := account.ParseAddress(raw)
	if err != nil {
		return account.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}
