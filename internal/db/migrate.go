package db

import (
	"context"
	"fmt"
)

// Migrate creates the CMS tables. Every statement is IF NOT EXISTS so
// the migration can run on every startup.
func Migrate(ctx context.Context, d *DB) error {
	jsonType := "TEXT"
	timeType := "TIMESTAMP"
	if d.Dialect == DialectPostgres {
		jsonType = "JSONB"
		timeType = "TIMESTAMPTZ"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cms_user (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			image TEXT,
			role TEXT NOT NULL DEFAULT 'editor',
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
		// At most one superadmin row may exist.
		`CREATE UNIQUE INDEX IF NOT EXISTS cms_user_unique_superadmin
			ON cms_user (role) WHERE role = 'superadmin'`,
		`CREATE TABLE IF NOT EXISTS cms_session (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES cms_user (id) ON DELETE CASCADE,
			token TEXT NOT NULL UNIQUE,
			expires_at ` + timeType + ` NOT NULL,
			ip_address TEXT,
			user_agent TEXT,
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cms_account (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES cms_user (id) ON DELETE CASCADE,
			account_id TEXT NOT NULL,
			provider_id TEXT NOT NULL,
			password TEXT,
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cms_verification (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL,
			value TEXT NOT NULL,
			expires_at ` + timeType + ` NOT NULL,
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cms_collection (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			slug TEXT NOT NULL UNIQUE,
			description TEXT,
			schema ` + jsonType + ` NOT NULL,
			created_by_id TEXT REFERENCES cms_user (id),
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cms_entry (
			id TEXT PRIMARY KEY,
			collection_id TEXT NOT NULL REFERENCES cms_collection (id) ON DELETE CASCADE,
			data ` + jsonType + ` NOT NULL,
			status TEXT NOT NULL DEFAULT 'draft',
			published_at ` + timeType + `,
			created_by_id TEXT REFERENCES cms_user (id),
			updated_by_id TEXT REFERENCES cms_user (id),
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS cms_entry_collection
			ON cms_entry (collection_id, status)`,
		`CREATE TABLE IF NOT EXISTS cms_media (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			size INTEGER NOT NULL,
			url TEXT NOT NULL,
			bucket_path TEXT NOT NULL,
			alt TEXT,
			caption TEXT,
			metadata ` + jsonType + `,
			uploaded_by_id TEXT REFERENCES cms_user (id),
			created_at ` + timeType + ` NOT NULL,
			updated_at ` + timeType + ` NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	dbLogger.Sugar().Debugf("migrations applied, %d statements", len(stmts))
	return nil
}
