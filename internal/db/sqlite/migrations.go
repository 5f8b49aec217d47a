package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	up      string
}

// migrations is the ordered list of schema steps. Never edit an applied
// step; append a new one instead.
var migrations = []migration{
	{
		version: 1,
		name:    "create_records_table",
		up: `
			CREATE TABLE IF NOT EXISTS records (
				region TEXT NOT NULL,
				key    TEXT NOT NULL,
				value  BLOB NOT NULL,
				PRIMARY KEY (region, key)
			) WITHOUT ROWID;
		`,
	},
	{
		version: 2,
		name:    "create_counters_table",
		up: `
			CREATE TABLE IF NOT EXISTS counters (
				key        TEXT PRIMARY KEY,
				value      INTEGER NOT NULL,
				expires_at INTEGER NOT NULL DEFAULT 0
			);
		`,
	},
}

// runMigrations applies every pending migration, each in its own transaction.
func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current := 0
	err = db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name,
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
	}
	return nil
}
