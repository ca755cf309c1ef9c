package main

import (
	"io"
	"log/slog"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// newLogger builds a zap core and exposes it as an slog.Logger, which is
// what the library packages accept.
func newLogger(level slog.Level, development bool, out io.Writer) (*slog.Logger, func()) {
	encCfg := zap.NewProductionEncoderConfig()
	if development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if development {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), zapLevel(level))
	logger := slog.New(zapslog.NewHandler(core, zapslog.WithName("rt-client")))
	return logger, func() { _ = core.Sync() }
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// redirectWriter forwards to a writer that can be swapped once the
// interactive console owns the terminal.
type redirectWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (r *redirectWriter) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Write(p)
}

func (r *redirectWriter) Set(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w = w
}
