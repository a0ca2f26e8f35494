// Package index provides the derived SQLite index of every register entry,
// used for prefix lookups across volumes.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS volumes (
	name        TEXT PRIMARY KEY,
	sort_key    TEXT NOT NULL,
	checksum    TEXT NOT NULL DEFAULT '',
	lemma_count INTEGER NOT NULL DEFAULT 0,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS lemmas (
	volume      TEXT NOT NULL REFERENCES volumes(name) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	sort_key    TEXT NOT NULL,
	volume_sort TEXT NOT NULL,
	previous    TEXT NOT NULL DEFAULT '',
	next        TEXT NOT NULL DEFAULT '',
	redirect    TEXT NOT NULL DEFAULT '',
	chapters    INTEGER NOT NULL DEFAULT 0,
	authors     TEXT NOT NULL DEFAULT '[]',
	valid       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (volume, position)
);

CREATE INDEX IF NOT EXISTS idx_lemmas_sort_key ON lemmas(sort_key, volume_sort);
CREATE INDEX IF NOT EXISTS idx_lemmas_title ON lemmas(title);
CREATE INDEX IF NOT EXISTS idx_lemmas_next ON lemmas(next);
CREATE INDEX IF NOT EXISTS idx_lemmas_previous ON lemmas(previous);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
