package cache

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

func (c *Cache) initializeSchema() error {
	return c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			)
		`); err != nil {
			return fmt.Errorf("failed to create schema_version table: %w", err)
		}
		if err := createResultsTable(tx); err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
		return nil
	})
}

// createResultsTable holds one row per (salt, rule set, path, content) key.
// payload is zstd-compressed; raw_size is its decompressed length.
func createResultsTable(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS results (
			key TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			payload BLOB NOT NULL,
			raw_size INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			accessed_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create results table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_results_accessed ON results(accessed_at)"); err != nil {
		return fmt.Errorf("failed to create results index: %w", err)
	}
	return nil
}

func (c *Cache) schemaVersion() (int, error) {
	var version int
	err := c.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (c *Cache) runMigrations() error {
	version, err := c.schemaVersion()
	if err != nil {
		return err
	}
	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("cache schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	c.logger.Debug("Migrating result cache", "from_version", version, "to_version", currentSchemaVersion)
	// Cached results are disposable: rebuild rather than migrate rows.
	return c.WithTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("DROP TABLE IF EXISTS results"); err != nil {
			return err
		}
		if err := createResultsTable(tx); err != nil {
			return err
		}
		if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
			return err
		}
		_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion)
		return err
	})
}
