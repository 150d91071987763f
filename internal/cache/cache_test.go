package cache

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestCache(t *testing.T) *Cache {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("Failed to close cache: %v", err)
		}
	})
	return c
}

func TestCacheInitialization(t *testing.T) {
	c := setupTestCache(t)

	if _, err := os.Stat(c.Path()); err != nil {
		t.Fatalf("cache file was not created: %v", err)
	}
	version, err := c.schemaVersion()
	if err != nil {
		t.Fatalf("schemaVersion() error = %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestCache_PutGet(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	payload := bytes.Repeat([]byte(`{"rule":"Metrics/CyclomaticComplexity","line":3}`), 50)
	key := Key("cyclomatic:7", "app/models/user.rb", []byte("def foo; end"))

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get() on empty cache = ok %v, err %v", ok, err)
	}
	if err := c.Put(ctx, key, "app/models/user.rb", payload); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get() = ok %v, err %v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Get() returned %d bytes, want %d", len(got), len(payload))
	}

	st, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Entries != 1 || st.Files != 1 {
		t.Errorf("Stats() entries = %d files = %d, want 1 and 1", st.Entries, st.Files)
	}
	if st.RawBytes != int64(len(payload)) {
		t.Errorf("RawBytes = %d, want %d", st.RawBytes, len(payload))
	}
	if st.StoredBytes >= st.RawBytes {
		t.Errorf("StoredBytes = %d, want compression below %d", st.StoredBytes, st.RawBytes)
	}
	if st.Ratio() <= 1 {
		t.Errorf("Ratio() = %v, want > 1", st.Ratio())
	}
}

func TestCache_PutReplaces(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()
	key := Key("fp", "a.rb", []byte("x"))

	c.Put(ctx, key, "a.rb", []byte("first"))
	c.Put(ctx, key, "a.rb", []byte("second"))

	got, _, _ := c.Get(ctx, key)
	if string(got) != "second" {
		t.Errorf("Get() = %q, want second", got)
	}
	if st, _ := c.Stats(ctx); st.Entries != 1 {
		t.Errorf("Entries = %d, want 1", st.Entries)
	}
}

func TestKey(t *testing.T) {
	base := Key("fp", "a.rb", []byte("src"))

	tests := []struct {
		name string
		key  string
	}{
		{"fingerprint", Key("fp2", "a.rb", []byte("src"))},
		{"path", Key("fp", "b.rb", []byte("src"))},
		{"source", Key("fp", "a.rb", []byte("src "))},
		{"boundary shift", Key("fpa", ".rb", []byte("src"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == base {
				t.Errorf("Key() did not change with %s", tt.name)
			}
		})
	}

	if Key("fp", "a.rb", []byte("src")) != base {
		t.Error("Key() is not deterministic")
	}
	if len(base) != 64 {
		t.Errorf("len(Key()) = %d, want 64 hex chars", len(base))
	}
}

func TestCache_PruneAndClear(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	for _, p := range []string{"a.rb", "b.rb", "c.rb"} {
		if err := c.Put(ctx, Key("fp", p, nil), p, []byte(p)); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := c.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("Prune(past) removed %d, want 0", removed)
	}

	removed, err = c.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("Prune(future) removed %d, want 3", removed)
	}

	c.Put(ctx, Key("fp", "d.rb", nil), "d.rb", []byte("d"))
	if n, err := c.Clear(ctx); err != nil || n != 1 {
		t.Errorf("Clear() = %d, %v, want 1", n, err)
	}
	if st, _ := c.Stats(ctx); st.Entries != 0 || !st.Oldest.IsZero() {
		t.Errorf("Stats() after Clear = %+v", st)
	}
}

func TestCache_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	key := Key("fp", "a.rb", []byte("src"))

	c, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(ctx, key, "a.rb", []byte("kept")); err != nil {
		t.Fatal(err)
	}
	c.Close()

	c, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer c.Close()

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok || string(got) != "kept" {
		t.Errorf("Get() after reopen = %q, %v, %v", got, ok, err)
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()
	key := Key("fp", "a.rb", nil)

	if _, err := c.conn.Exec(
		"INSERT INTO results (key, path, payload, raw_size, created_at, accessed_at) VALUES (?, ?, ?, ?, ?, ?)",
		key, "a.rb", []byte("not zstd"), 8, 0, 0,
	); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Errorf("Get() corrupt = ok %v, err %v, want miss", ok, err)
	}
	if st, _ := c.Stats(ctx); st.Entries != 0 {
		t.Errorf("corrupt entry not dropped: %d entries", st.Entries)
	}
}
