package storage

import (
	"database/sql"
	"fmt"
)

// migration is a single schema migration applied inside a transaction.
type migration struct {
	Version int
	Name    string
	Apply   func(tx *sql.Tx) error
}

var migrations = []migration{
	{Version: 1, Name: "initial_schema", Apply: migrateV001},
}

// migrate applies all pending migrations in order, tracking them in a
// schema_migrations table.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var n int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&n)
		if err != nil {
			return fmt.Errorf("checking migration %d: %w", m.Version, err)
		}
		if n > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.Version, err)
		}
		if err := m.Apply(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("applying migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// migrateV001 creates the transcript table and its FTS5 index. The FTS
// table shares rowids with records; the insert path keeps both in sync
// within one transaction.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id         TEXT PRIMARY KEY,
			playlist   TEXT,
			title      TEXT,
			timing     REAL,
			transcript TEXT,
			pos_tags   TEXT,
			audio      TEXT
		)`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			transcript,
			pos_tags
		)`,

		`CREATE INDEX IF NOT EXISTS idx_records_playlist ON records(playlist)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
