package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements returns the DDL for d, in order. Everything uses
// IF NOT EXISTS so re-application is harmless.
func schemaStatements(d dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			history    %s   NOT NULL,
			created_at %s   NOT NULL,
			updated_at %s   NOT NULL
		)`, d.historyType(), d.timestampType(), d.timestampType()),

		`CREATE INDEX IF NOT EXISTS idx_conversations_user_updated ON conversations(user_id, updated_at)`,
	}
}

// migrate creates or updates the database schema to the latest version.
func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlstore: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlstore: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx,
		d.rebind("INSERT INTO schema_version (version) VALUES (?) ON CONFLICT (version) DO NOTHING"),
		schemaVersion,
	); err != nil {
		return fmt.Errorf("sqlstore: record schema version: %w", err)
	}

	return nil
}
