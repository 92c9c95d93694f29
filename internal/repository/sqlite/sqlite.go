// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without a C toolchain and cross-compiles like any other Go program.
//
// DATABASE/SQL OVERVIEW:
// Go's standard library provides "database/sql", a generic interface for SQL databases.
// It works with any database through "drivers" (SQLite, Postgres, MySQL, etc.).
// Key types:
//   - sql.DB     : a connection pool (NOT a single connection!)
//   - sql.Tx     : a transaction
//   - sql.Row    : a single result row
//   - sql.Rows   : multiple result rows (must be closed!)
//
// One DB value owns the pool. Each table gets its own small store type
// (UserDB, SessionDB, ImageDB) so that method names like Create and GetByID
// don't collide; get them with db.Users(), db.Sessions() and db.Images().
package sqlite

import (
	"database/sql"
	"fmt"

	// The blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// memoryDSN is the special path for a throwaway in-memory database.
const memoryDSN = ":memory:"

// DB wraps a sql.DB connection pool and hands out the per-table stores.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/ogstudio.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests; lost on close)
//
// Every connection to ":memory:" opens a separate, empty database, so the
// pool is pinned to a single connection in that case.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == memoryDSN {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces a real connection so a bad path fails here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. sessions and images
	// reference users, so turn them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
//
// Wherever you call New(), immediately defer Close():
//
//	db, err := sqlite.New("data/ogstudio.db")
//	if err != nil { ... }
//	defer db.Close()
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the users table store.
func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

// Sessions returns the sessions table store.
func (db *DB) Sessions() *SessionDB {
	return &SessionDB{conn: db.conn}
}

// Images returns the images table store.
func (db *DB) Images() *ImageDB {
	return &ImageDB{conn: db.conn}
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is idempotent, so this runs on every start.
func (db *DB) migrate() error {
	// github_id is UNIQUE: each GitHub account maps to exactly one row.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			github_id  INTEGER NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at INTEGER NOT NULL, -- unix milliseconds
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	// elements holds the JSON-encoded element list of the layout.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS images (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name       TEXT NOT NULL,
			elements   TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_images_user_id ON images(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating images table: %w", err)
	}

	return nil
}
