package cache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"cxlint/internal/version"
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Key derives the cache key for one file under one rule set. Any change to
// the build, the rule fingerprint, the path or the source yields a new key.
func Key(fingerprint, path string, source []byte) string {
	h, _ := blake2b.New256(nil)
	for _, part := range [][]byte{[]byte(version.CacheSalt()), []byte(fingerprint), []byte(path), source} {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the payload stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var blob []byte
	err := c.conn.QueryRowContext(ctx, "SELECT payload FROM results WHERE key = ?", key).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	payload, err := decoder.DecodeAll(blob, nil)
	if err != nil {
		c.logger.Debug("Dropping corrupt cache entry", "key", key, "error", err)
		c.conn.ExecContext(ctx, "DELETE FROM results WHERE key = ?", key)
		return nil, false, nil
	}

	if _, err := c.conn.ExecContext(ctx, "UPDATE results SET accessed_at = ? WHERE key = ?", time.Now().Unix(), key); err != nil {
		c.logger.Debug("Failed to touch cache entry", "key", key, "error", err)
	}
	return payload, true, nil
}

// Put stores payload under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key, path string, payload []byte) error {
	blob := encoder.EncodeAll(payload, nil)
	now := time.Now().Unix()

	_, err := c.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO results (key, path, payload, raw_size, created_at, accessed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, key, path, blob, len(payload), now, now)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	c.logger.Debug("Cached result", "path", path, "raw", len(payload), "stored", len(blob))
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Path        string    `json:"path"`
	Entries     int64     `json:"entries"`
	Files       int64     `json:"files"`
	RawBytes    int64     `json:"rawBytes"`
	StoredBytes int64     `json:"storedBytes"`
	Oldest      time.Time `json:"oldest,omitzero"`
}

// Ratio is the compression ratio of stored payloads, 0 when empty.
func (s Stats) Ratio() float64 {
	if s.StoredBytes == 0 {
		return 0
	}
	return float64(s.RawBytes) / float64(s.StoredBytes)
}

// Stats reports entry counts and payload sizes.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Path: c.path}
	var oldest sql.NullInt64
	err := c.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT path), COALESCE(SUM(raw_size), 0),
		       COALESCE(SUM(LENGTH(payload)), 0), MIN(accessed_at)
		FROM results
	`).Scan(&st.Entries, &st.Files, &st.RawBytes, &st.StoredBytes, &oldest)
	if err != nil {
		return st, fmt.Errorf("failed to read cache stats: %w", err)
	}
	if oldest.Valid {
		st.Oldest = time.Unix(oldest.Int64, 0)
	}
	return st, nil
}

// Prune removes entries not read or written since before.
func (c *Cache) Prune(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM results WHERE accessed_at < ?", before.Unix())
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	c.logger.Debug("Pruned result cache", "removed", removed, "before", before)
	return removed, nil
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.conn.ExecContext(ctx, "DELETE FROM results")
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return res.RowsAffected()
}
