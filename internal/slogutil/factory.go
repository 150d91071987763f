package slogutil

import (
	"io"
	"log/slog"
)

// Options describes where the CLI logs go. Console output always goes to
// the writer passed to NewLoggerFactory; File adds a second, optionally
// rotated, destination.
type Options struct {
	// Level is the console level; the file always receives Level or finer
	Level slog.Level

	// FileLevel overrides the level for the file sink when non-zero
	FileLevel slog.Level

	// Format is "text" (default) or "json"
	Format string

	File       string
	MaxSize    string
	MaxBackups int
}

// LoggerFactory builds the process logger and owns any files it opened.
type LoggerFactory struct {
	console io.Writer
	opts    Options
	closers []io.Closer
}

// NewLoggerFactory creates a factory writing console logs to w.
func NewLoggerFactory(w io.Writer, opts Options) *LoggerFactory {
	return &LoggerFactory{console: w, opts: opts}
}

// Logger returns the configured logger. When the log file cannot be
// opened the console logger is returned together with the error.
func (f *LoggerFactory) Logger() (*slog.Logger, error) {
	console := f.handler(f.console, f.opts.Level)
	if f.opts.File == "" {
		return slog.New(console), nil
	}

	size, err := ParseSize(f.opts.MaxSize)
	if err != nil {
		return slog.New(console), err
	}
	rf, err := OpenRotatingFile(f.opts.File, size, f.opts.MaxBackups)
	if err != nil {
		return slog.New(console), err
	}
	f.closers = append(f.closers, rf)

	fileLevel := f.opts.Level
	if f.opts.FileLevel != 0 {
		fileLevel = f.opts.FileLevel
	}
	return slog.New(Fanout(console, f.handler(rf, fileLevel))), nil
}

func (f *LoggerFactory) handler(w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if f.opts.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return NewCxHandler(w, opts)
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
