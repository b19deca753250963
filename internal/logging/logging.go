// Package logging builds the process-wide zap logger: a human-readable console
// core plus a size-rotated JSON file core.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Yates-Labs/carebridge/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how much the service logs.
type Config struct {
	// Level is one of debug, info, warn, error
	Level string

	// Dir holds the rotated log file; empty disables file output
	Dir string

	// FileName is the active log file inside Dir
	FileName string

	// MaxSizeMB is the size at which the file is rotated
	MaxSizeMB int

	// MaxBackups is how many rotated files are kept
	MaxBackups int

	// Console enables the stderr core
	Console bool
}

// DefaultConfig reads LOG_LEVEL and LOG_DIR.
func DefaultConfig() Config {
	return Config{
		Level:      config.String("LOG_LEVEL", "info"),
		Dir:        config.String("LOG_DIR", "logs"),
		FileName:   "system.log",
		MaxSizeMB:  5,
		MaxBackups: 3,
		Console:    true,
	}
}

// New builds a logger from cfg. The returned function flushes buffered entries
// and closes the rotating file.
func New(cfg Config) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var cores []zapcore.Core
	var rotator *lumberjack.Logger

	if cfg.Console {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := cfg.FileName
		if name == "" {
			name = "system.log"
		}
		rotator = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, name),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encCfg),
			zapcore.AddSync(rotator),
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() {}, nil
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	cleanup := func() {
		_ = logger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}
	return logger, cleanup, nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
