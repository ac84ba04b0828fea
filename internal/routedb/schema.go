// Package routedb persists committed route nodes in SQLite.
package routedb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS routes (
	id         INTEGER PRIMARY KEY,
	code       TEXT NOT NULL,
	parent_id  INTEGER REFERENCES routes(id) ON DELETE CASCADE,
	position   TEXT NOT NULL CHECK (position IN ('ROOT', 'L', 'R')),
	duration   INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_routes_slot ON routes(parent_id, position)
	WHERE parent_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_routes_root ON routes((parent_id IS NULL))
	WHERE parent_id IS NULL;
`

// DB wraps a sql.DB with route-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("routedb: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("routedb: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("routedb: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
