// Package migrations applies the catalog schema at startup. Statements are
// idempotent so Apply can run on every boot.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id             TEXT PRIMARY KEY,
		owner_user_id  TEXT NOT NULL,
		title          TEXT NOT NULL DEFAULT '',
		author         TEXT NOT NULL DEFAULT '',
		image_ref      TEXT NOT NULL DEFAULT '',
		year           INTEGER NOT NULL DEFAULT 0,
		genre          TEXT NOT NULL DEFAULT '',
		ratings        JSONB NOT NULL DEFAULT '[]',
		average_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		version        BIGINT NOT NULL DEFAULT 1,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_average_rating ON books (average_rating DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_books_owner ON books (owner_user_id)`,
}

// Apply executes every migration statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
