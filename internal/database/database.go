package database

import (
	"database/sql"

	_ "modernc.org/sqlite" // SQLite driver
)

// Time layouts used when binding time values. SQLite compares stored
// datetimes lexicographically, so every writer formats UTC values with these
// fixed layouts to keep comparisons and ordering correct.
const (
	TimeLayout = "2006-01-02 15:04:05"
	DateLayout = "2006-01-02"
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
//
// Email uniqueness is enforced here, at the storage layer; the service-level
// pre-check on registration is only a fast path and cannot be relied on under
// concurrent registrations.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		token TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at);

	CREATE TABLE IF NOT EXISTS portfolios (
		user_id TEXT NOT NULL REFERENCES users(id),
		ticker TEXT NOT NULL,
		name TEXT NOT NULL,
		shares REAL NOT NULL,
		avg_price REAL NOT NULL,
		current_price REAL NOT NULL,
		asset_type TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, ticker)
	);

	CREATE TABLE IF NOT EXISTS dividends (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		ticker TEXT NOT NULL,
		amount REAL NOT NULL,
		payment_date DATETIME NOT NULL,
		dividend_type TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS dividends_user_date_idx ON dividends (user_id, payment_date);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		user_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
