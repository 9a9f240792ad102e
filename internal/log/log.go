package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Options controls where and how log lines are written.
type Options struct {
	// Level is the minimum level emitted. Unknown values fall back to info.
	Level Level
	// File, if set, receives log lines through a size-rotated writer in
	// addition to stderr.
	File string
	// JSON switches from the key=value text format to JSON lines.
	JSON bool
	// MaxSizeMB, MaxBackups and MaxAgeDays bound the rotated file.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu       sync.RWMutex
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	levelVar = func() *slog.LevelVar {
		v := new(slog.LevelVar)
		v.Set(slog.LevelInfo)
		return v
	}()
	rotator *lumberjack.Logger
)

// Setup replaces the global logger. It returns a close function for the
// rotated file, which is a no-op when no file is configured.
func Setup(opts Options) func() error {
	mu.Lock()
	defer mu.Unlock()

	if rotator != nil {
		_ = rotator.Close()
		rotator = nil
	}

	var w io.Writer = os.Stderr
	if opts.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
		}
		w = io.MultiWriter(os.Stderr, rotator)
	}

	levelVar.Set(toSlog(opts.Level))
	handlerOpts := &slog.HandlerOptions{Level: levelVar}
	if opts.JSON {
		logger = slog.New(slog.NewJSONHandler(w, handlerOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(w, handlerOpts))
	}

	r := rotator
	return func() error {
		if r == nil {
			return nil
		}
		return r.Close()
	}
}

// SetLevel changes the minimum level without rebuilding the handler.
func SetLevel(l Level) {
	levelVar.Set(toSlog(l))
}

// ParseLevel maps a config string onto a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "warning":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger exposes the current slog.Logger for libraries that want one.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, kv ...any) {
	Logger().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	Logger().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	Logger().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// err always leads the attribute list.
	extended := append([]any{"err", err}, kv...)
	Logger().Error(msg, extended...)
}

func toSlog(l Level) slog.Level {
	switch ParseLevel(string(l)) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
