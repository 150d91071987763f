package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CxHandler formats records on one line:
// TIMESTAMP [level] Message | key=value key=value
type CxHandler struct {
	w      io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string // dotted group path, "" at top level
	mu     *sync.Mutex
}

// NewCxHandler creates a new cxlint log handler.
func NewCxHandler(w io.Writer, opts *slog.HandlerOptions) *CxHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &CxHandler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *CxHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the log record.
func (h *CxHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(r.Time.UTC().Format(time.RFC3339))
	buf.WriteString(" [")
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendFlat(attrs, h.prefix, a)
		return true
	})

	if len(attrs) > 0 {
		buf.WriteString(" |")
		for _, a := range attrs {
			buf.WriteByte(' ')
			buf.WriteString(a.Key)
			buf.WriteByte('=')
			buf.WriteString(formatValue(a.Value))
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *CxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(next, h.attrs)
	for _, a := range attrs {
		next = appendFlat(next, h.prefix, a)
	}

	c := *h
	c.attrs = next
	return &c
}

// WithGroup returns a new handler that prefixes later keys with name.
func (h *CxHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = joinKey(h.prefix, name)
	return &c
}

// appendFlat resolves a and appends it under prefix, expanding group
// values into dotted keys. Empty keys and empty groups are dropped.
func appendFlat(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return dst
		}
		// inline groups have no key of their own
		p := prefix
		if a.Key != "" {
			p = joinKey(prefix, a.Key)
		}
		for _, ga := range group {
			dst = appendFlat(dst, p, ga)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	return append(dst, slog.Attr{Key: joinKey(prefix, a.Key), Value: a.Value})
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// levelString returns a lowercase string for the log level.
func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

// formatValue formats a slog.Value for display. Strings with spaces or
// quotes are quoted so the line stays splittable on spaces.
func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	default:
		s = fmt.Sprint(v.Any())
	}
	if strings.ContainsAny(s, " \t\n\"") {
		return strconv.Quote(s)
	}
	return s
}
