// Package cache stores lint results keyed by file content so unchanged files
// are not parsed again.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"cxlint/internal/slogutil"
)

// Cache is a result cache backed by a single SQLite file.
type Cache struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// Open opens or creates the cache database at path.
func Open(path string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	exists := fileExists(path)

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	// Pragmas are per connection.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	c := &Cache{conn: conn, logger: logger, path: path}
	if !exists {
		logger.Debug("Creating result cache", "path", path)
		if err := c.initializeSchema(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	} else if err := c.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return c, nil
}

// Path returns the database file.
func (c *Cache) Path() string { return c.path }

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// WithTx executes fn within a transaction, rolling back if it fails.
func (c *Cache) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Error("failed to rollback transaction", "error", err, "rollback_error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
