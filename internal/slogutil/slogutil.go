// Package slogutil builds cxlint's loggers: a compact line handler, level
// parsing for the config file and CLI flags, and fan-out to a log file.
package slogutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// LevelSilent is above every level slog defines; -q uses it.
const LevelSilent = slog.Level(100)

var levelNames = map[string]slog.Level{
	"":        slog.LevelWarn,
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel converts a logging.level value. Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return slog.LevelWarn, fmt.Errorf("unknown level %s", s)
	}
	return level, nil
}

// LevelFromVerbosity maps -v repetitions to a level: warn, then info, then
// debug. quiet wins over any verbosity.
func LevelFromVerbosity(verbosity int, quiet bool) slog.Level {
	switch {
	case quiet:
		return LevelSilent
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// NewDiscardLogger returns a logger for components built without one.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

// Fanout combines handlers; the console and the log file in the CLI.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
