package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Global logger; a no-op until Init runs so packages can log from tests.
var (
	globalLogger *zap.Logger = zap.NewNop()
)

// L returns the global logger.
func L() *zap.Logger { return globalLogger }

// Options selects sinks and encoding. Format is one of legacy, json or console.
type Options struct {
	Level   string
	Format  string
	Console bool
	File    string
	Caller  bool
}

// Init builds the global logger from opts. An empty File disables the file sink.
func Init(opts Options) error {
	logger, err := New(opts)
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// New builds a logger without installing it.
func New(opts Options) (*zap.Logger, error) {
	level := parseLevel(opts.Level)
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format != "legacy" && format != "json" && format != "console" {
		format = "legacy"
	}

	var sinks []zapcore.WriteSyncer
	if opts.Console {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		ws, err := openFile(path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ws)
	}
	if len(sinks) == 0 {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}
	cores := make([]zapcore.Core, 0, len(sinks))
	for _, ws := range sinks {
		cores = append(cores, zapcore.NewCore(encoderFor(format), ws, level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if opts.Caller || format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Sync flushes buffered entries; call on shutdown.
func Sync() { _ = globalLogger.Sync() }

func encoderFor(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "json":
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	// legacy: pipe-separated columns with a plain timestamp
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return zapcore.NewConsoleEncoder(cfg)
}

// openFile appends to path, creating missing parent directories.
func openFile(path string) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return zapcore.AddSync(f), nil
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "warning":
		return zapcore.WarnLevel
	case "debug", "info", "warn", "error":
		_ = lvl.Set(v)
		return lvl
	}
	return zapcore.InfoLevel
}
