// Package logging is the structured logger shared by every orrery
// component. It is a thin layer over log/slog so call sites can pass typed
// fields and a context without depending on a concrete handler.
package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Field is one structured attribute on a log line.
type Field = slog.Attr

func String(key, value string) Field        { return slog.String(key, value) }
func Int(key string, value int) Field       { return slog.Int(key, value) }
func Uint64(key string, value uint64) Field { return slog.Uint64(key, value) }
func Float(key string, value float64) Field { return slog.Float64(key, value) }
func Bool(key string, value bool) Field     { return slog.Bool(key, value) }
func Any(key string, value any) Field       { return slog.Any(key, value) }

// Err logs err as a string under "error". nil logs as "".
func Err(err error) Field {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Logger is what components take instead of *slog.Logger.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Config selects level, encoding and destination.
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // json or text
	AddSource bool
	// Output defaults to stdout. The terminal front-end points it at a file
	// so log lines do not tear the screen.
	Output io.Writer
}

// New builds a Logger from cfg. Unknown levels fall back to info and
// unknown formats to text.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}

	if strings.EqualFold(cfg.Format, "json") {
		return handlerLogger{slog.New(slog.NewJSONHandler(out, opts))}
	}
	return handlerLogger{slog.New(slog.NewTextHandler(out, opts))}
}

// NewFromEnv reads LOG_LEVEL and LOG_FORMAT.
func NewFromEnv() Logger {
	return New(Config{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})
}

// Noop discards everything.
func Noop() Logger { return handlerLogger{slog.New(slog.DiscardHandler)} }

// ParseLevel maps a level name to a slog level. "warning" is accepted as an
// alias for warn; anything unrecognised is info.
func ParseLevel(name string) slog.Level {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type handlerLogger struct {
	l *slog.Logger
}

func (h handlerLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return h
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return handlerLogger{h.l.With(args...)}
}

func (h handlerLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	h.l.LogAttrs(ctx, slog.LevelDebug, msg, fields...)
}

func (h handlerLogger) Info(ctx context.Context, msg string, fields ...Field) {
	h.l.LogAttrs(ctx, slog.LevelInfo, msg, fields...)
}

func (h handlerLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	h.l.LogAttrs(ctx, slog.LevelWarn, msg, fields...)
}

func (h handlerLogger) Error(ctx context.Context, msg string, fields ...Field) {
	h.l.LogAttrs(ctx, slog.LevelError, msg, fields...)
}

type sessionKey struct{}

// NewSessionID returns a random 12 hex digit identifier.
func NewSessionID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

// SessionID returns the session stored on ctx, or "".
func SessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// StartSession tags ctx and base with a session id. A session is one
// mounted view, one recording or one stream client. An id already on ctx
// is reused.
func StartSession(ctx context.Context, base Logger) (context.Context, Logger, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if base == nil {
		base = Noop()
	}
	id := SessionID(ctx)
	if id == "" {
		id = NewSessionID()
		ctx = context.WithValue(ctx, sessionKey{}, id)
	}
	return ctx, base.With(String("session", id)), id
}
