package slogutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo)

	logger.Info("Test message", "key", "value", "count", 42)

	output := buf.String()

	// Check format: TIMESTAMP [level] Message | key=value
	if !strings.Contains(output, "[info]") {
		t.Errorf("expected [info] in output, got: %s", output)
	}
	if !strings.Contains(output, "Test message") {
		t.Errorf("expected 'Test message' in output, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("expected 'key=value' in output, got: %s", output)
	}
	if !strings.Contains(output, "count=42") {
		t.Errorf("expected 'count=42' in output, got: %s", output)
	}
	if !strings.Contains(output, " | ") {
		t.Errorf("expected ' | ' separator in output, got: %s", output)
	}
}

func TestHandler_Levels(t *testing.T) {
	tests := []struct {
		level    slog.Level
		logFunc  func(*slog.Logger)
		expected string
	}{
		{slog.LevelDebug, func(l *slog.Logger) { l.Debug("debug") }, "[debug]"},
		{slog.LevelInfo, func(l *slog.Logger) { l.Info("info") }, "[info]"},
		{slog.LevelWarn, func(l *slog.Logger) { l.Warn("warn") }, "[warn]"},
		{slog.LevelError, func(l *slog.Logger) { l.Error("error") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newTestLogger(&buf, slog.LevelDebug) // Enable all levels
			tt.logFunc(logger)

			output := buf.String()
			if !strings.Contains(output, tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, output)
			}
		})
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("debug message should be filtered")
	}
	if strings.Contains(output, "info message") {
		t.Error("info message should be filtered")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should be included")
	}
	if !strings.Contains(output, "error message") {
		t.Error("error message should be included")
	}
}

func newTestLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewCxHandler(w, &slog.HandlerOptions{Level: level}))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"", slog.LevelWarn, false},
		{"loud", slog.LevelWarn, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		want      slog.Level
	}{
		{0, false, slog.LevelWarn},
		{-1, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{7, false, slog.LevelDebug},
		{0, true, LevelSilent},
		{3, true, LevelSilent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.want {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.want)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled at any level")
	}
	logger.Error("dropped", "path", "a.rb")
}

func TestFanout(t *testing.T) {
	var console, file bytes.Buffer
	h := Fanout(
		NewCxHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		NewCxHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	if h.Enabled(context.Background(), slog.LevelDebug-1) {
		t.Error("Enabled below every handler's level")
	}

	logger := slog.New(h).With("path", "lib/a.rb")
	logger.Debug("parsed")
	logger.Warn("slow file")

	if strings.Contains(console.String(), "parsed") {
		t.Errorf("console got a debug record:\n%s", console.String())
	}
	for _, want := range []string{"parsed", "slow file", "path=lib/a.rb"} {
		if !strings.Contains(file.String(), want) {
			t.Errorf("file log missing %q:\n%s", want, file.String())
		}
	}
	if !strings.Contains(console.String(), "slow file | path=lib/a.rb") {
		t.Errorf("console log = %q", console.String())
	}
}

func TestCxHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, slog.LevelInfo).WithGroup("lint").With("rule", "Metrics/CyclomaticComplexity")

	logger.Info("scored", slog.Group("method", "name", "call", "score", 9.5), "file", "a.rb")

	output := buf.String()
	for _, want := range []string{
		"lint.rule=Metrics/CyclomaticComplexity",
		"lint.method.name=call",
		"lint.method.score=9.5",
		"lint.file=a.rb",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestCxHandler_QuotesSpaces(t *testing.T) {
	var buf bytes.Buffer
	newTestLogger(&buf, slog.LevelInfo).Info("parse failed", "error", "syntax error at line 3", "path", "a.rb")

	output := buf.String()
	if !strings.Contains(output, `error="syntax error at line 3"`) {
		t.Errorf("expected quoted error value, got: %s", output)
	}
	if !strings.Contains(output, "path=a.rb") {
		t.Errorf("expected unquoted path, got: %s", output)
	}
}

func TestLoggerFactory(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "cxlint.log")

	f := NewLoggerFactory(&console, Options{Level: slog.LevelWarn, FileLevel: slog.LevelDebug, File: path, MaxSize: "1MB", MaxBackups: 1})
	logger, err := f.Logger()
	if err != nil {
		t.Fatalf("Logger() error = %v", err)
	}
	logger.Debug("cache hit", "path", "a.rb")
	logger.Warn("parse failed", "path", "b.rb")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if strings.Contains(console.String(), "cache hit") {
		t.Error("console should not receive debug records")
	}
	if !strings.Contains(console.String(), "parse failed") {
		t.Error("console should receive warn records")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "cache hit") || !strings.Contains(string(data), "parse failed") {
		t.Errorf("log file = %q, want both records", data)
	}
}

func TestLoggerFactory_JSON(t *testing.T) {
	var console bytes.Buffer
	f := NewLoggerFactory(&console, Options{Level: slog.LevelInfo, Format: "json"})
	logger, err := f.Logger()
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("done", "files", 3)

	if !strings.HasPrefix(console.String(), "{") || !strings.Contains(console.String(), `"files":3`) {
		t.Errorf("expected JSON output, got: %s", console.String())
	}
}

func TestLoggerFactory_BadSize(t *testing.T) {
	var console bytes.Buffer
	f := NewLoggerFactory(&console, Options{File: filepath.Join(t.TempDir(), "x.log"), MaxSize: "lots"})
	logger, err := f.Logger()
	if err == nil {
		t.Error("expected an error for an invalid size")
	}
	if logger == nil {
		t.Fatal("a console logger should still be returned")
	}
}
