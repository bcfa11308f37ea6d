package database

import (
	"context"
	"fmt"
)

// migration is one versioned schema change. Migrations are applied in order
// inside a transaction each; applied versions are recorded in
// schema_migrations and never re-run.
type migration struct {
	version     int
	description string
	statements  []string
}

// migrations is the ordered schema history for the command log store.
var migrations = []migration{
	{
		version:     1,
		description: "command log table",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS command_log (
				id         TEXT PRIMARY KEY,
				kind       TEXT NOT NULL,
				channel    TEXT,
				value      TEXT NOT NULL,
				source     TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_command_log_created_at
				ON command_log (created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_command_log_kind
				ON command_log (kind)`,
		},
	},
}

// Migrate applies all pending schema migrations.
//
// It is safe to call on every startup: already-applied versions are skipped.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If any migration fails; the failing migration is rolled back
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	current, err := db.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
	}

	return nil
}

// schemaVersion returns the highest applied migration version (0 if none).
func (db *DB) schemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations",
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// applyMigration runs one migration's statements in a transaction and
// records the version.
func (db *DB) applyMigration(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing statement: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES (?)", m.version,
	); err != nil {
		return fmt.Errorf("recording migration version: %w", err)
	}

	return tx.Commit()
}
