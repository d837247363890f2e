package database

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates all tables if they do not exist yet. Statements
// are idempotent, so running it on every startup is safe.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}
